// SPDX-License-Identifier: EPL-2.0

package audio

import "testing"

func TestFormat_Sizes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		format        Format
		wantFrame     int
		wantPerSecond int
		wantValid     bool
	}{
		{"s16 stereo 44100", S16(44100, 2), 4, 176400, true},
		{"s16 mono 8000", S16(8000, 1), 2, 16000, true},
		{"u8 mono 11025", Format{SampleRate: 11025, Channels: 1, BitsPerSample: 8, Unsigned: true}, 1, 11025, true},
		{"zero rate", S16(0, 2), 4, 0, false},
		{"odd bits", Format{SampleRate: 8000, Channels: 1, BitsPerSample: 12}, 1, 8000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.format.FrameSize(); got != tt.wantFrame {
				t.Errorf("FrameSize() = %d, want %d", got, tt.wantFrame)
			}
			if got := tt.format.BytesPerSecond(); got != tt.wantPerSecond {
				t.Errorf("BytesPerSecond() = %d, want %d", got, tt.wantPerSecond)
			}
			if got := tt.format.Valid(); got != tt.wantValid {
				t.Errorf("Valid() = %v, want %v", got, tt.wantValid)
			}
		})
	}
}

func TestFormat_String(t *testing.T) {
	t.Parallel()

	if got, want := S16(22050, 2).String(), "s16 2ch 22050Hz"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
