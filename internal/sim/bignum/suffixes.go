package bignum

// Short-scale suffixes indexed by exponent/3.
var suffixes = []string{
	"",    // 10^0
	"K",   // 10^3
	"M",   // 10^6
	"B",   // 10^9
	"T",   // 10^12
	"Qa",  // 10^15
	"Qi",  // 10^18
	"Sx",  // 10^21
	"Sp",  // 10^24
	"Oc",  // 10^27
	"No",  // 10^30
	"Dc",  // 10^33
	"Ud",  // 10^36
	"Dd",  // 10^39
	"Td",  // 10^42
	"Qad", // 10^45
	"Qid", // 10^48
	"Sxd", // 10^51
	"Spd", // 10^54
	"Ocd", // 10^57
	"Nod", // 10^60
	"Vg",  // 10^63
}

const terminalSuffix = "Vg"

func suffixFor(idx int) string {
	if idx < 0 || idx >= len(suffixes) {
		return terminalSuffix
	}
	return suffixes[idx]
}
