// SPDX-License-Identifier: MIT

// Package epg renders compiled channels to an XMLTV document.
package epg

import (
	"encoding/xml"
	"fmt"
	"time"
)

type TV struct {
	XMLName      xml.Name    `xml:"tv"`
	Generator    string      `xml:"generator-info-name,attr,omitempty"`
	GeneratorURL string      `xml:"generator-info-url,attr,omitempty"`
	Channels     []Channel   `xml:"channel"`
	Programmes   []Programme `xml:"programme"`
}

type Channel struct {
	ID          string   `xml:"id,attr"`
	DisplayName []string `xml:"display-name"`
}

type Programme struct {
	Start      string    `xml:"start,attr"`
	Stop       string    `xml:"stop,attr"`
	Channel    string    `xml:"channel,attr"`
	Title      Text      `xml:"title"`
	SubTitle   *Text     `xml:"sub-title"`
	Desc       *Text     `xml:"desc"`
	Categories []Text    `xml:"category"`
	Live       *struct{} `xml:"live"`
}

// Text is an element with an optional lang attribute and character data.
type Text struct {
	Lang  string `xml:"lang,attr,omitempty"`
	Value string `xml:",chardata"`
}

// formatXMLTVTime formats time in XMLTV format, pinned to UTC:
// YYYYMMDDHHMMSS +0000
func formatXMLTVTime(t time.Time) string {
	return t.UTC().Format("20060102150405 -0700")
}

// Render serializes the document with the XML header and two-space indent.
func Render(tv *TV) ([]byte, error) {
	out, err := xml.MarshalIndent(tv, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal xmltv: %w", err)
	}
	header := `<?xml version="1.0" encoding="UTF-8"?>` + "\n"
	return append([]byte(header), append(out, '\n')...), nil
}
