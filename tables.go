package exify

type codeName struct {
	code int
	name string
}

// codeTable maps EXIF and JPEG codes to display names. The fallback for
// unmatched codes is up to each caller.
type codeTable []codeName

func (t codeTable) lookup(code int) (string, bool) {
	for _, e := range t {
		if e.code == code {
			return e.name, true
		}
	}
	return "", false
}

var orientationNames = codeTable{
	{0, "Undefined"},
	{1, "Normal"},
	{2, "Flip Horizontal"},
	{3, "Rotate 180"},
	{4, "Flip Vertical"},
	{5, "Transpose"},
	{6, "Rotate 90"},
	{7, "Transverse"},
	{8, "Rotate 270"},
}

// flash fired; other odd values are a plain "Yes"
var flashFiredNames = codeTable{
	{0x05, "Yes (Strobe light not detected)"},
	{0x07, "Yes (Strobe light detected) "},
	{0x09, "Yes (manual)"},
	{0x0d, "Yes (manual, return light not detected)"},
	{0x0f, "Yes (manual, return light  detected)"},
	{0x19, "Yes (auto)"},
	{0x1d, "Yes (auto, return light not detected)"},
	{0x1f, "Yes (auto, return light detected)"},
	{0x41, "Yes (red eye reduction mode)"},
	{0x45, "Yes (red eye reduction mode return light not detected)"},
	{0x47, "Yes (red eye reduction mode return light  detected)"},
	{0x49, "Yes (manual, red eye reduction mode)"},
	{0x4d, "Yes (manual, red eye reduction mode, return light not detected)"},
	{0x4f, "Yes (red eye reduction mode, return light detected)"},
	{0x59, "Yes (auto, red eye reduction mode)"},
	{0x5d, "Yes (auto, red eye reduction mode, return light not detected)"},
	{0x5f, "Yes (auto, red eye reduction mode, return light detected)"},
}

const flashAutoNotFired = 0x18

var lightSourceNames = codeTable{
	{1, "Daylight"},
	{2, "Fluorescent"},
	{3, "Incandescent"},
	{4, "Flash"},
	{9, "Fine weather"},
	{11, "Shade"},
}

var meteringModeNames = codeTable{
	{1, "Average"},
	{2, "Center Weighted"},
	{3, "Spot"},
	{4, "Multi-spot"},
	{5, "Pattern"},
	{6, "Partial"},
	{255, "Other"},
}

var exposureProgramNames = codeTable{
	{1, "Manual"},
	{2, "Program (auto)"},
	{3, "Aperture-priority (semi-auto)"},
	{4, "Shutter-priority (semi-auto)"},
	{5, "Creative Program (based towards depth of field)"},
	{6, "Action program (based towards fast shutter speed)\n"},
	{7, "Portrait Mode"},
	{8, "LandscapeMode"},
}

var exposureModeNames = codeTable{
	{1, "Manual"},
	{2, "Auto bracketing"},
}

var distanceRangeNames = codeTable{
	{1, "Macro"},
	{2, "Close"},
	{3, "Distant"},
}

// keyed by SOFn marker code
var processNames = codeTable{
	{0xc0, "Baseline"},
	{0xc1, "Extended sequential"},
	{0xc2, "Progressive"},
	{0xc3, "Lossless"},
	{0xc5, "Differential sequential"},
	{0xc6, "Differential progressive"},
	{0xc7, "Differential lossless"},
	{0xc9, "Extended sequential, arithmetic coding"},
	{0xca, "Progressive, arithmetic coding"},
	{0xcb, "Lossless, arithmetic coding"},
	{0xcd, "Differential sequential, arithmetic coding"},
	{0xce, "Differential progressive, arithmetic coding"},
	{0xcf, "Differential lossless, arithmetic coding"},
}
