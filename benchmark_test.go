package mxpack

import (
	"testing"
)

func BenchmarkWriteInt(b *testing.B) {
	w, _ := NewWriter(DiscardSink{})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = w.WriteInt(int64(i))
	}
}

func BenchmarkWriteString(b *testing.B) {
	w, _ := NewWriter(DiscardSink{})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = w.WriteString("a short string payload")
	}
}

func BenchmarkReadInt(b *testing.B) {
	sink := NewBufferSink()
	w, _ := NewWriter(sink)
	for i := 0; i < 1024; i++ {
		_ = w.WriteInt(int64(i) * 3)
	}
	_ = w.Flush()
	wire := sink.Bytes()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r, _ := NewBufferReader(wire)
		for j := 0; j < 1024; j++ {
			if _, err := r.ReadInt64(); err != nil {
				b.Fatal(err)
			}
		}
	}
}

func BenchmarkReadIdentifier(b *testing.B) {
	sink := NewBufferSink()
	w, _ := NewWriter(sink)
	for i := 0; i < 256; i++ {
		_ = w.WriteIdentifier("field_name")
	}
	_ = w.Flush()
	wire := sink.Bytes()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r, _ := NewBufferReader(wire)
		for j := 0; j < 256; j++ {
			if _, err := r.ReadIdentifier(); err != nil {
				b.Fatal(err)
			}
		}
	}
}
