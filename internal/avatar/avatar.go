// Package avatar derives a deterministic anonymous avatar from a session's
// integer seed. Same seed, same avatar, across restarts and across clients.
package avatar

import "fmt"

var emojiPool = []string{
	"😶", "🫥", "🫣", "🫡", "😏", "😐", "🙃", "😎", "🥸", "🤖",
	"👻", "👽", "🐸", "🦊", "🐼", "🐨", "🦉", "🐺", "🦄", "🐙",
}

// Avatar is the client-facing avatar representation.
type Avatar struct {
	HSL   string `json:"hsl"`
	Emoji string `json:"emoji"`
}

// FromSeed maps a seed to a hue on the color wheel and an emoji from the
// fixed pool.
func FromSeed(seed int) Avatar {
	if seed < 0 {
		seed = -seed
	}
	return Avatar{
		HSL:   fmt.Sprintf("hsl(%d 70%% 50%%)", seed%360),
		Emoji: emojiPool[seed%len(emojiPool)],
	}
}
