package main

// Network abstracts the convergence action the watcher takes when the local
// node takes over as designated forwarder for an interface.
type Network interface {
	SendGratuitousArp(interfaceName string) error
}
