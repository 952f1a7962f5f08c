package webdav

import (
	"encoding/xml"
	"fmt"
	"strings"
)

const propfindBody = `<?xml version="1.0" encoding="utf-8"?>
<d:propfind xmlns:d="DAV:">
  <d:prop>
    <d:getetag/>
    <d:getcontentlength/>
    <d:getlastmodified/>
    <d:resourcetype/>
  </d:prop>
</d:propfind>`

type multistatus struct {
	XMLName   xml.Name   `xml:"DAV: multistatus"`
	Responses []response `xml:"DAV: response"`
}

type response struct {
	Href      string     `xml:"DAV: href"`
	Propstats []propstat `xml:"DAV: propstat"`
}

type propstat struct {
	Status string `xml:"DAV: status"`
	Prop   prop   `xml:"DAV: prop"`
}

type prop struct {
	ETag          string        `xml:"DAV: getetag"`
	ContentLength string        `xml:"DAV: getcontentlength"`
	LastModified  string        `xml:"DAV: getlastmodified"`
	ResourceType  *resourceType `xml:"DAV: resourcetype"`
}

type resourceType struct {
	Collection *struct{} `xml:"DAV: collection"`
}

// parseMultistatus flattens a 207 body, keeping only the properties
// reported with a 200 status.
func parseMultistatus(body []byte) (entries []entry, err error) {
	var ms multistatus
	if err = xml.Unmarshal(body, &ms); err != nil {
		err = fmt.Errorf("parse multistatus: %w", err)
		return
	}
	for _, r := range ms.Responses {
		e := entry{href: r.Href}
		for _, ps := range r.Propstats {
			if !strings.Contains(ps.Status, " 200 ") {
				continue
			}
			if ps.Prop.ETag != "" {
				e.etag = ps.Prop.ETag
			}
			if ps.Prop.ContentLength != "" {
				e.contentLength = ps.Prop.ContentLength
			}
			if ps.Prop.LastModified != "" {
				e.lastModified = ps.Prop.LastModified
			}
			if ps.Prop.ResourceType != nil && ps.Prop.ResourceType.Collection != nil {
				e.collection = true
			}
		}
		entries = append(entries, e)
	}
	return
}
