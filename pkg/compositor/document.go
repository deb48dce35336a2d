package compositor

import (
	"bytes"
	"html"
	"strconv"

	"github.com/matzehuels/histatlas/pkg/trace"
)

// Styling constants for region paths.
const (
	FillOpacity     = "0.2"
	UnassignedColor = "#9e9e9e"
	ClassPrefix     = "svg-region-"
	UnassignedClass = "svg-region-unassigned"
	svgNamespace    = "http://www.w3.org/2000/svg"
)

// Path is one styled region outline.
type Path struct {
	Region string
	Class  string
	D      string
	Fill   string
	Stroke string
}

// Document is a layer's SVG: region paths over a width×height canvas.
type Document struct {
	Width, Height int
	Paths         []Path
}

func (c *Compositor) style(region string, f trace.Fragment) Path {
	return StylePath(region, f.D, c.catalog.Color)
}

// StylePath styles a traced outline with the region's color. Regions without
// a color get UnassignedColor and the extra UnassignedClass.
func StylePath(region, d string, colorOf func(string) (string, bool)) Path {
	p := Path{Region: region, Class: ClassPrefix + region, D: d}
	color, ok := colorOf(region)
	if !ok {
		color = UnassignedColor
		p.Class += " " + UnassignedClass
	}
	p.Fill, p.Stroke = color, color
	return p
}

// Bytes renders the document. An empty document is still a valid SVG.
func (d Document) Bytes() []byte {
	w, h := strconv.Itoa(d.Width), strconv.Itoa(d.Height)

	var buf bytes.Buffer
	buf.WriteString(`<svg xmlns="` + svgNamespace + `" width="` + w + `" height="` + h +
		`" viewBox="0 0 ` + w + ` ` + h + `" version="1.1">`)
	for _, p := range d.Paths {
		buf.WriteString("\n")
		p.writeTo(&buf)
	}
	buf.WriteString("\n</svg>\n")
	return buf.Bytes()
}

func (p Path) writeTo(buf *bytes.Buffer) {
	attr := func(name, value string) {
		buf.WriteString(" " + name + `="` + html.EscapeString(value) + `"`)
	}
	buf.WriteString("<path")
	attr("class", p.Class)
	attr("d", p.D)
	attr("stroke", p.Stroke)
	attr("fill", p.Fill)
	attr("fill-opacity", FillOpacity)
	attr("fill-rule", "evenodd")
	buf.WriteString("/>")
}
