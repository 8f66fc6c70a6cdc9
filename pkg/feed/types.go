package feed

import (
	"encoding/xml"
)

// RSS represents the root RSS 2.0 element
type RSS struct {
	XMLName xml.Name    `xml:"rss"`
	Version string      `xml:"version,attr"`
	Atom    string      `xml:"xmlns:atom,attr"`
	Channel *RSSChannel `xml:"channel"`
}

// RSSChannel represents an RSS channel
type RSSChannel struct {
	XMLName       xml.Name   `xml:"channel"`
	Title         string     `xml:"title"`
	Link          string     `xml:"link"`
	Description   string     `xml:"description"`
	AtomLink      *AtomLink  `xml:"http://www.w3.org/2005/Atom link"`
	LastBuildDate string     `xml:"lastBuildDate"`
	Items         []*RSSItem `xml:"item"`
}

// AtomLink represents an Atom link element within RSS
type AtomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

// RSSItem represents an item in a generated RSS feed
type RSSItem struct {
	Title       string `xml:"title"`
	GUID        string `xml:"guid,omitempty"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
}

// feedDocument is the subset of a podcast RSS document read by Client
type feedDocument struct {
	XMLName xml.Name     `xml:"rss"`
	Channel *feedChannel `xml:"channel"`
}

type feedChannel struct {
	Title []xmlText  `xml:"title"`
	Items []feedItem `xml:"item"`
}

// feedItem keeps every element with a matching local name, namespaced ones included
// (itunes:title, googleplay:description), only the plain ones are used
type feedItem struct {
	Title       []xmlText `xml:"title"`
	Description []xmlText `xml:"description"`
	PubDate     []xmlText `xml:"pubDate"`
	Duration    []xmlText `xml:"http://www.itunes.com/dtds/podcast-1.0.dtd duration"`
}

type xmlText struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

// plain returns the first element without a namespace
func plain(elems []xmlText) (string, bool) {
	for _, e := range elems {
		if e.XMLName.Space == "" {
			return e.Value, true
		}
	}
	return "", false
}

// first returns the first element regardless of namespace
func first(elems []xmlText) (string, bool) {
	if len(elems) == 0 {
		return "", false
	}
	return elems[0].Value, true
}
