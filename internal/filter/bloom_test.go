package filter

import (
	"fmt"
	"testing"
)

func TestBloomNoFalseNegatives(t *testing.T) {
	b := NewBuilder(10)
	keys := make([][]byte, 0, 1000)
	for i := 0; i < 1000; i++ {
		k := []byte(fmt.Sprintf("key-%06d", i))
		keys = append(keys, k)
		b.AddKey(k)
	}
	r := NewReader(b.Finish())
	for _, k := range keys {
		if !r.MayContain(k) {
			t.Fatalf("false negative for %q", k)
		}
	}
}

func TestBloomFalsePositiveRateBounded(t *testing.T) {
	b := NewBuilder(10)
	for i := 0; i < 10000; i++ {
		b.AddKey([]byte(fmt.Sprintf("present-%06d", i)))
	}
	r := NewReader(b.Finish())
	fp := 0
	total := 10000
	for i := 0; i < total; i++ {
		if r.MayContain([]byte(fmt.Sprintf("absent-%06d", i))) {
			fp++
		}
	}
	rate := float64(fp) / float64(total)
	if rate > 0.05 {
		t.Fatalf("false positive rate too high: %f", rate)
	}
}

func TestBloomEmpty(t *testing.T) {
	b := NewBuilder(10)
	r := NewReader(b.Finish())
	if r.MayContain([]byte("anything")) {
		t.Fatalf("empty filter must report MayContain=false for everything")
	}
}
