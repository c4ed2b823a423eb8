package classify

// KakeraKind is the loot kind encoded by a drop's embed color.
type KakeraKind int

const (
	KakeraUnknown KakeraKind = iota
	KakeraPurple
	KakeraBlue
	KakeraTeal
	KakeraGreen
	KakeraYellow
	KakeraOrange
	KakeraRed
	KakeraPink
	KakeraRainbow
	KakeraLight
)

// kakeraColors maps the fixed embed palette to kinds. Exact match only; any
// other color is KakeraUnknown.
var kakeraColors = map[uint32]KakeraKind{
	0x9B59B6: KakeraPurple,
	0x3498DB: KakeraBlue,
	0x1ABC9C: KakeraTeal,
	0x2ECC71: KakeraGreen,
	0xF1C40F: KakeraYellow,
	0xE67E22: KakeraOrange,
	0xE74C3C: KakeraRed,
	0xFFB6C1: KakeraPink,
	0x00FFFF: KakeraRainbow,
	0xFFFFFF: KakeraLight,
}

var kakeraNames = map[KakeraKind]string{
	KakeraUnknown: "unknown",
	KakeraPurple:  "purple",
	KakeraBlue:    "blue",
	KakeraTeal:    "teal",
	KakeraGreen:   "green",
	KakeraYellow:  "yellow",
	KakeraOrange:  "orange",
	KakeraRed:     "red",
	KakeraPink:    "pink",
	KakeraRainbow: "rainbow",
	KakeraLight:   "light",
}

// KakeraKindFromColor resolves an embed color against the fixed palette.
func KakeraKindFromColor(color uint32, hasColor bool) KakeraKind {
	if !hasColor {
		return KakeraUnknown
	}

	if kind, ok := kakeraColors[color]; ok {
		return kind
	}

	return KakeraUnknown
}

func (k KakeraKind) String() string {
	if name, ok := kakeraNames[k]; ok {
		return name
	}

	return "unknown"
}
