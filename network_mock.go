package main

type MockNetwork struct {
	gratuitousArp map[string]int
}

func NewMockNetwork() *MockNetwork {
	return &MockNetwork{
		gratuitousArp: make(map[string]int),
	}
}

func (s *MockNetwork) SendGratuitousArp(interfaceName string) error {
	s.gratuitousArp[interfaceName] += 1
	return nil
}
