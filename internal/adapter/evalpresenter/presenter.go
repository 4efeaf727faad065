package evalpresenter

import (
	"strings"
)

// Presenter delivers reports and board images without coupling to the caller's
// output channel.
type Presenter struct {
	sendMessage func(message string) error
	sendImage   func(png []byte) error
}

func NewPresenter(sendMessage func(message string) error, sendImage func(png []byte) error) *Presenter {
	return &Presenter{
		sendMessage: sendMessage,
		sendImage:   sendImage,
	}
}

// Report sends the text first and then the image, skipping whichever is empty.
func (p *Presenter) Report(message string, png []byte) error {
	if p == nil {
		return nil
	}

	if text := strings.TrimSpace(message); text != "" && p.sendMessage != nil {
		if err := p.sendMessage(message); err != nil {
			return err
		}
	}

	if len(png) > 0 && p.sendImage != nil {
		if err := p.sendImage(png); err != nil {
			return err
		}
	}

	return nil
}
