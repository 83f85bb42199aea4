package session

// PreferredMimeTypes is the container/codec preference order tried when a
// session starts. Opus in WebM first; everything else is a fallback for
// devices that cannot produce it.
var PreferredMimeTypes = []string{
	"audio/webm;codecs=opus",
	"audio/webm",
	"audio/ogg;codecs=opus",
	"audio/mp4",
}

// NegotiateMimeType returns the first entry of preferred that supports
// reports as usable, or fallback when none is. Pure decision function.
func NegotiateMimeType(preferred []string, supports func(string) bool, fallback string) string {
	for _, mt := range preferred {
		if supports(mt) {
			return mt
		}
	}
	return fallback
}
