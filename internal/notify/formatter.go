package notify

import (
	"fmt"
	"strings"

	"swapwatch/internal/model"
)

const (
	DefaultExplorerURL = "https://etherscan.io"
	DefaultMediaURL    = "https://nblurr.com/wp-content/uploads/2024/11/NEW-BUY.mp4"
)

// Notification is one formatted alert: a media preamble and an optional
// HTML text body. Text is empty for pools without a message template.
type Notification struct {
	MediaURL string
	Text     string
}

// phrasing labels the two trade lines. swapped is the token the pool
// received; received is the token it paid out.
type phrasing struct {
	swapped  string
	received string
}

// phrasingFor words a trade in pool, depending on which token the pool received.
func phrasingFor(pool model.Pool, token0In bool) phrasing {
	if token0In {
		return phrasing{
			swapped:  "Swapped " + pool.Token0,
			received: pool.Token1Verb + " " + pool.Token1,
		}
	}
	return phrasing{
		swapped:  "Swapped " + pool.Token1,
		received: "Received " + pool.Token0,
	}
}

// FormatterConfig configures links and media.
type FormatterConfig struct {
	ExplorerURL string
	MediaURL    string
}

// Formatter renders swap records as Telegram HTML messages.
type Formatter struct {
	explorerURL string
	mediaURL    string
}

func NewFormatter(cfg FormatterConfig) *Formatter {
	explorer := strings.TrimRight(cfg.ExplorerURL, "/")
	if explorer == "" {
		explorer = DefaultExplorerURL
	}
	media := cfg.MediaURL
	if media == "" {
		media = DefaultMediaURL
	}
	return &Formatter{explorerURL: explorer, mediaURL: media}
}

// Format maps a record to its notification. Addresses and hashes are
// protocol hex strings and are embedded without escaping.
func (f *Formatter) Format(record model.SwapRecord) Notification {
	n := Notification{MediaURL: f.mediaURL}

	pool, ok := model.LookupPool(record.Pool)
	if !ok {
		return n
	}

	token0In := record.Token0In()
	words := phrasingFor(pool, token0In)
	swapped, received := record.T1, record.T0
	if token0In {
		swapped, received = record.T0, record.T1
	}

	var b strings.Builder
	fmt.Fprintf(&b, "💸💸 %s 💸💸\n\n", pool.Title)
	fmt.Fprintf(&b, "🤵‍♂️ From: %s\n", f.addressLink(record.From))
	fmt.Fprintf(&b, "🤵‍♂️ To: %s\n", f.addressLink(record.To))
	fmt.Fprintf(&b, "💱 %s: %s\n", words.swapped, swapped.StringFixed(model.DisplayPlaces))
	fmt.Fprintf(&b, "💱 %s: %s\n", words.received, received.StringFixed(model.DisplayPlaces))
	fmt.Fprintf(&b, "💵 Price (USD): %s\n", record.Price.StringFixed(model.DisplayPlaces))
	fmt.Fprintf(&b, "🔍 <a href='%s/tx/%s'>TX</a>", f.explorerURL, record.TxHash)

	n.Text = b.String()
	return n
}

func (f *Formatter) addressLink(address string) string {
	return fmt.Sprintf("<a href='%s/address/%s'>%s</a>", f.explorerURL, address, address)
}
