package matrixrelay

import (
	"encoding/binary"
	"errors"
	"testing"
)

func TestBuildSegmentPacketHeader(t *testing.T) {
	px := gradientMatrix(3, 2)
	tile := Tile{TotalWidth: 500, XOffset: 384, Width: 3, Height: 2, Pixels: px}

	pkt := BuildSegmentPacket(tile)
	if len(pkt) != 10+3*2*2 {
		t.Fatalf("len = %d, want %d", len(pkt), 10+12)
	}
	if string(pkt[0:2]) != "SG" {
		t.Errorf("tag = %q, want SG", pkt[0:2])
	}

	h, ok := ParseSegmentHeader(pkt)
	if !ok {
		t.Fatal("ParseSegmentHeader failed")
	}
	want := SegmentHeader{TotalWidth: 500, XOffset: 384, Width: 3, Height: 2}
	if h != want {
		t.Errorf("header = %+v, want %+v", h, want)
	}

	// Pikseller little-endian ve satır öncelikli
	for i, p := range px.Pix {
		if got := binary.LittleEndian.Uint16(pkt[10+i*2:]); got != p {
			t.Errorf("payload[%d] = %d, want %d", i, got, p)
		}
	}
}

func TestParseSegmentHeaderRejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short", []byte("SG\x01\x00")},
		{"wrong tag", []byte("XX\x01\x00\x00\x00\x01\x00\x01\x00")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := ParseSegmentHeader(tt.data); ok {
				t.Error("header accepted")
			}
		})
	}
}

func TestParseSegmentPacket(t *testing.T) {
	px := gradientMatrix(4, 3)
	pkt := BuildSegmentPacket(Tile{TotalWidth: 10, XOffset: 6, Width: 4, Height: 3, Pixels: px})

	tile, err := ParseSegmentPacket(pkt)
	if err != nil {
		t.Fatalf("ParseSegmentPacket: %v", err)
	}
	for i := range px.Pix {
		if tile.Pixels.Pix[i] != px.Pix[i] {
			t.Fatalf("pixel %d mismatch", i)
		}
	}

	if _, err := ParseSegmentPacket(pkt[:len(pkt)-1]); !errors.Is(err, ErrBadSegment) {
		t.Errorf("truncated payload err = %v", err)
	}

	overflow := BuildSegmentPacket(Tile{TotalWidth: 8, XOffset: 6, Width: 4, Height: 3, Pixels: px})
	if _, err := ParseSegmentPacket(overflow); !errors.Is(err, ErrBadSegment) {
		t.Errorf("overflowing tile err = %v", err)
	}
}

func TestLegacyFrameRoundTrip(t *testing.T) {
	m := gradientMatrix(5, 2)
	data := BuildLegacyFrame(m)
	if len(data) != 4+5*2*2 {
		t.Fatalf("len = %d", len(data))
	}

	got, extra, err := ParseLegacyFrame(append(data, 0xAA, 0xBB))
	if err != nil {
		t.Fatalf("ParseLegacyFrame: %v", err)
	}
	if extra != 2 {
		t.Errorf("extra = %d, want 2", extra)
	}
	if got.Width != 5 || got.Height != 2 {
		t.Fatalf("dimensions = %dx%d", got.Width, got.Height)
	}
	for i := range m.Pix {
		if got.Pix[i] != m.Pix[i] {
			t.Fatalf("pixel %d = %d, want %d", i, got.Pix[i], m.Pix[i])
		}
	}
}

func TestParseLegacyFrameShort(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"no header", []byte{1, 0}},
		{"payload short", []byte{2, 0, 2, 0, 1, 2, 3, 4, 5, 6, 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := ParseLegacyFrame(tt.data); !errors.Is(err, ErrShortFrame) {
				t.Errorf("err = %v, want ErrShortFrame", err)
			}
		})
	}
}
