package cli

import (
	"github.com/atotto/clipboard"

	"github.com/doeshing/askai-go/internal/ports"
)

// Clipboard implements ports.Clipboard on top of the system clipboard tools
// (pbcopy, xclip/xsel/wl-copy, clip.exe).
type Clipboard struct{}

// NewClipboard builds the clipboard helper.
func NewClipboard() *Clipboard {
	return &Clipboard{}
}

// Enabled reports whether a clipboard utility was found.
func (c *Clipboard) Enabled() bool {
	return !clipboard.Unsupported
}

// Copy copies text to the system clipboard.
func (c *Clipboard) Copy(text string) error {
	return clipboard.WriteAll(text)
}

var _ ports.Clipboard = (*Clipboard)(nil)
