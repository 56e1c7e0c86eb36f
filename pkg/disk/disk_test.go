package disk

import "testing"

func TestCeilSectors(t *testing.T) {
	tests := []struct {
		bytes   uint64
		sectors uint64
	}{
		{0, 0},
		{1, 1},
		{511, 1},
		{512, 1},
		{513, 2},
		{90, 1},
		{150, 1},
		{1000, 2},
		{512 * 7, 7},
	}

	for _, tt := range tests {
		if got := CeilSectors(tt.bytes); got != tt.sectors {
			t.Errorf("CeilSectors(%d) = %d, want %d", tt.bytes, got, tt.sectors)
		}
	}
}

func TestMaxTransferSectors(t *testing.T) {
	// 512 MiB divided by sector size and cache granularity.
	if MaxTransferSectors != 1<<14 {
		t.Errorf("MaxTransferSectors = %d, want %d", MaxTransferSectors, 1<<14)
	}
	if uint64(MaxTransferSectors)<<SectorBits<<CacheBits != 512*1024*1024 {
		t.Error("transfer cap does not correspond to 512 MiB")
	}
}

func TestGeometrySizeKnown(t *testing.T) {
	known := Geometry{TotalSectors: 42}
	if !known.SizeKnown() {
		t.Error("concrete sector count reported as unknown")
	}

	unknown := Geometry{TotalSectors: TotalSectorsUnknown}
	if unknown.SizeKnown() {
		t.Error("unknown sentinel reported as known")
	}
}
