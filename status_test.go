package main

import (
	"math"
	"testing"
)

func TestClassifyFlagsBitZero(t *testing.T) {
	for _, flags := range []uint64{0, 2, 4, 1024, math.MaxUint64 - 1} {
		if ClassifyFlags(flags) != DF {
			t.Errorf("ClassifyFlags(%d) = %v; want %v", flags, ClassifyFlags(flags), DF)
		}
	}
	for _, flags := range []uint64{1, 3, 5, 1025, math.MaxUint64} {
		if ClassifyFlags(flags) != NonDF {
			t.Errorf("ClassifyFlags(%d) = %v; want %v", flags, ClassifyFlags(flags), NonDF)
		}
	}
}

func TestClassifyFlagsPeriodicity(t *testing.T) {
	for _, flags := range []uint64{0, 1, 7, 100, 1 << 40} {
		if ClassifyFlags(flags) != ClassifyFlags(flags+2) {
			t.Errorf("ClassifyFlags(%d) = %v; want ClassifyFlags(%d) = %v", flags, ClassifyFlags(flags), flags+2, ClassifyFlags(flags+2))
		}
	}
}

func TestDFStatusString(t *testing.T) {
	if DF.String() != "df" {
		t.Errorf("DF.String() = %s; want df", DF.String())
	}
	if NonDF.String() != "non-df" {
		t.Errorf("NonDF.String() = %s; want non-df", NonDF.String())
	}
}

func TestParseDFStatus(t *testing.T) {
	status, err := ParseDFStatus("non-df")
	if err != nil || status != NonDF {
		t.Errorf("ParseDFStatus(\"non-df\") = %v, %v; want %v, nil", status, err, NonDF)
	}
	status, err = ParseDFStatus("df")
	if err != nil || status != DF {
		t.Errorf("ParseDFStatus(\"df\") = %v, %v; want %v, nil", status, err, DF)
	}
	_, err = ParseDFStatus("maybe")
	if err == nil {
		t.Errorf("ParseDFStatus(\"maybe\") = nil; want error")
	}
}
