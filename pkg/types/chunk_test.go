package types

import (
	"errors"
	"math"
	"testing"
)

func TestChunkIDFromFileID(t *testing.T) {
	tests := []struct {
		id   ParquetFileID
		want string
	}{
		{0, "00000000-0000-0000-0000-000000000000"},
		{1, "00000000-0000-0000-0000-000000000001"},
		{255, "00000000-0000-0000-0000-0000000000ff"},
		{math.MaxInt64, "00000000-0000-0000-7fff-ffffffffffff"},
		{-1, "ffffffff-ffff-ffff-ffff-ffffffffffff"},
	}

	for _, tt := range tests {
		if got := ChunkIDFromFileID(tt.id).String(); got != tt.want {
			t.Errorf("ChunkIDFromFileID(%d) = %s, want %s", tt.id, got, tt.want)
		}
	}
}

func TestChunkAddr_String(t *testing.T) {
	addr := ChunkAddr{
		DBName:       "ns",
		TableName:    "table",
		PartitionKey: OldGenPartitionKey(1, "part"),
		ChunkID:      ChunkIDFromFileID(1),
	}

	want := "Chunk('ns':'table':'1-part':00000000-0000-0000-0000-000000000001)"
	if got := addr.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestNewChunkOrder(t *testing.T) {
	if _, err := NewChunkOrder(0); !errors.Is(err, ErrZeroChunkOrder) {
		t.Fatalf("expected ErrZeroChunkOrder, got %v", err)
	}

	order, err := NewChunkOrder(7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Get() != 7 {
		t.Errorf("got %d, want 7", order.Get())
	}
	if MinChunkOrder.Compare(order) != -1 || order.Compare(order) != 0 || order.Compare(MinChunkOrder) != 1 {
		t.Error("Compare does not follow the raw value ordering")
	}
}

func TestChunkOrderFromSequenceNumber(t *testing.T) {
	tests := []struct {
		seq     SequenceNumber
		want    uint32
		wantErr bool
	}{
		{0, 1, false},
		{41, 42, false},
		{math.MaxUint32 - 1, math.MaxUint32, false},
		{math.MaxUint32, 0, true},
		{math.MaxUint32 + 10, 0, true},
		{-1, 0, true},
	}

	for _, tt := range tests {
		order, err := ChunkOrderFromSequenceNumber(tt.seq)
		if tt.wantErr {
			if !errors.Is(err, ErrChunkOrderOverflow) {
				t.Errorf("seq %d: expected ErrChunkOrderOverflow, got order=%v err=%v", tt.seq, order, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("seq %d: unexpected error: %v", tt.seq, err)
			continue
		}
		if order.Get() != tt.want {
			t.Errorf("seq %d: got %d, want %d", tt.seq, order.Get(), tt.want)
		}
	}
}

func TestTimestampRange_Contains(t *testing.T) {
	r := TimestampRange{Start: 10, End: 20}
	if !r.Contains(10) || !r.Contains(19) {
		t.Error("range should contain its start and values before its end")
	}
	if r.Contains(20) || r.Contains(9) {
		t.Error("range should exclude its end and values before its start")
	}
}
