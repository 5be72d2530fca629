// SPDX-License-Identifier: MIT

// Package playlist emits the M3U lane list for compiled channels.
package playlist

import (
	"bytes"
	"fmt"
	"io"
	"net/url"

	"github.com/chasut/eplustv-ah4c/internal/epg"
	"github.com/chasut/eplustv-ah4c/internal/guide"
)

type Item struct {
	Name    string
	TvgID   string
	TvgName string
	TvgChNo int
	TvgLogo string
	Group   string
	URL     string
}

// FromChannels maps the ordered channel list to playlist items: one entry per
// channel, deep-linking into the player app by event id. Pure and total; an
// empty channel list yields an empty item list.
func FromChannels(channels []guide.Channel, b epg.Branding, deeplinkBase string) []Item {
	items := make([]Item, 0, len(channels))
	for _, ch := range channels {
		name := b.DisplayName(ch)
		items = append(items, Item{
			Name:    name,
			TvgID:   b.ChannelID(ch.Number),
			TvgName: name,
			TvgChNo: ch.Number,
			Group:   b.Brand,
			URL:     deeplinkBase + "?id=" + url.QueryEscape(ch.Event.ID),
		})
	}
	return items
}

func WriteM3U(w io.Writer, items []Item) error {
	buf := &bytes.Buffer{}
	buf.WriteString("#EXTM3U\n")
	for _, it := range items {
		buf.WriteString(fmt.Sprintf(
			`#EXTINF:-1 tvg-chno="%d" tvg-id="%s" tvg-name="%s" tvg-logo="%s" group-title="%s",%s`+"\n",
			it.TvgChNo, it.TvgID, it.TvgName, it.TvgLogo, it.Group, it.Name,
		))
		buf.WriteString(it.URL + "\n")
	}
	_, err := io.Copy(w, buf)
	return err
}
