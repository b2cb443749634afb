package chat

import "hash/fnv"

// Palette is the fixed set of sender colors.
var Palette = []string{
	"#a864fd",
	"#29cdff",
	"#78ff44",
	"#ff718d",
	"#fdff6a",
	"#ff9f43",
	"#1dd1a1",
	"#5f27cd",
}

// ColorIndex maps username onto [0, n) as fnv32a(username) mod n. Every
// client computes the same index for the same name.
func ColorIndex(username string, n int) int {
	if n <= 0 {
		return 0
	}
	h := fnv.New32a()
	h.Write([]byte(username))
	return int(h.Sum32() % uint32(n))
}

// Color returns the Palette entry for username.
func Color(username string) string {
	return Palette[ColorIndex(username, len(Palette))]
}
