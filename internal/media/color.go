package media

// ColorSpec is the primaries/transfer/matrix triple behind a colour tag.
// Values use the names ffmpeg and ffprobe report.
type ColorSpec struct {
	Primaries string
	Transfer  string
	Matrix    string
}

// ColorSpecs maps the colour tags accepted by the colour-space action.
var ColorSpecs = map[string]ColorSpec{
	"sdr":        {Primaries: "bt709", Transfer: "bt709", Matrix: "bt709"},
	"bt601-ntsc": {Primaries: "smpte170m", Transfer: "bt709", Matrix: "smpte170m"},
	"bt601-pal":  {Primaries: "bt470bg", Transfer: "bt709", Matrix: "bt470bg"},
	"bt709":      {Primaries: "bt709", Transfer: "bt709", Matrix: "bt709"},
	"bt2020":     {Primaries: "bt2020", Transfer: "bt709", Matrix: "bt2020nc"},
	"bt2020-pq":  {Primaries: "bt2020", Transfer: "smpte2084", Matrix: "bt2020nc"},
	"bt2020-hlg": {Primaries: "bt2020", Transfer: "arib-std-b67", Matrix: "bt2020nc"},
	"p3-d65":     {Primaries: "smpte432", Transfer: "bt709", Matrix: "bt709"},
}
