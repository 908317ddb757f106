package eagle

import "encoding/xml"

// The structs below mirror the subset of the EAGLE DTD that carries board
// geometry. Numeric attributes are kept as strings so that a missing value
// can be told apart from a zero and reported with its location.

type xmlDocument struct {
	XMLName xml.Name    `xml:"eagle"`
	Version string      `xml:"version,attr"`
	Drawing *xmlDrawing `xml:"drawing"`
}

type xmlDrawing struct {
	Layers    []xmlLayer `xml:"layers>layer"`
	Board     *xmlBoard  `xml:"board"`
	Schematic *struct{}  `xml:"schematic"`
	Library   *struct{}  `xml:"library"`
}

type xmlLayer struct {
	Number  string `xml:"number,attr"`
	Name    string `xml:"name,attr"`
	Color   string `xml:"color,attr"`
	Fill    string `xml:"fill,attr"`
	Visible string `xml:"visible,attr"`
	Active  string `xml:"active,attr"`
}

type xmlBoard struct {
	Description string       `xml:"description"`
	Attributes  []xmlGlobal  `xml:"attributes>attribute"`
	Plain       xmlGraphics  `xml:"plain"`
	Libraries   []xmlLibrary `xml:"libraries>library"`
	Elements    []xmlElement `xml:"elements>element"`
	Signals     []xmlSignal  `xml:"signals>signal"`
}

// xmlGlobal is a board-level attribute such as AUTHOR or REVISION.
type xmlGlobal struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// xmlGraphics is the shape content shared by <plain> and <package>.
type xmlGraphics struct {
	Description string         `xml:"description"`
	Wires       []xmlWire      `xml:"wire"`
	Circles     []xmlCircle    `xml:"circle"`
	Rectangles  []xmlRectangle `xml:"rectangle"`
	Polygons    []xmlPolygon   `xml:"polygon"`
	Texts       []xmlText      `xml:"text"`
	Holes       []xmlHole      `xml:"hole"`
	Pads        []xmlPad       `xml:"pad"`
	SMDs        []xmlSMD       `xml:"smd"`
	Other       []xmlUnknown   `xml:",any"`
}

type xmlUnknown struct {
	XMLName xml.Name
}

type xmlLibrary struct {
	Name     string       `xml:"name,attr"`
	URN      string       `xml:"urn,attr"`
	Packages []xmlPackage `xml:"packages>package"`
}

type xmlPackage struct {
	Name string `xml:"name,attr"`
	xmlGraphics
}

type xmlElement struct {
	Name       string         `xml:"name,attr"`
	Library    string         `xml:"library,attr"`
	LibraryURN string         `xml:"library_urn,attr"`
	Package    string         `xml:"package,attr"`
	Value      string         `xml:"value,attr"`
	X          string         `xml:"x,attr"`
	Y          string         `xml:"y,attr"`
	Rot        string         `xml:"rot,attr"`
	Smashed    string         `xml:"smashed,attr"`
	Attributes []xmlAttribute `xml:"attribute"`
}

type xmlAttribute struct {
	Name    string `xml:"name,attr"`
	Value   string `xml:"value,attr"`
	X       string `xml:"x,attr"`
	Y       string `xml:"y,attr"`
	Size    string `xml:"size,attr"`
	Layer   string `xml:"layer,attr"`
	Rot     string `xml:"rot,attr"`
	Display string `xml:"display,attr"`
}

type xmlSignal struct {
	Name        string          `xml:"name,attr"`
	Class       string          `xml:"class,attr"`
	ContactRefs []xmlContactRef `xml:"contactref"`
	Wires       []xmlWire       `xml:"wire"`
	Vias        []xmlVia        `xml:"via"`
	Polygons    []xmlPolygon    `xml:"polygon"`
	Other       []xmlUnknown    `xml:",any"`
}

type xmlContactRef struct {
	Element string `xml:"element,attr"`
	Pad     string `xml:"pad,attr"`
}

type xmlWire struct {
	X1    string `xml:"x1,attr"`
	Y1    string `xml:"y1,attr"`
	X2    string `xml:"x2,attr"`
	Y2    string `xml:"y2,attr"`
	Width string `xml:"width,attr"`
	Layer string `xml:"layer,attr"`
	Curve string `xml:"curve,attr"`
}

type xmlCircle struct {
	X      string `xml:"x,attr"`
	Y      string `xml:"y,attr"`
	Radius string `xml:"radius,attr"`
	Width  string `xml:"width,attr"`
	Layer  string `xml:"layer,attr"`
}

type xmlRectangle struct {
	X1    string `xml:"x1,attr"`
	Y1    string `xml:"y1,attr"`
	X2    string `xml:"x2,attr"`
	Y2    string `xml:"y2,attr"`
	Layer string `xml:"layer,attr"`
	Rot   string `xml:"rot,attr"`
}

type xmlPolygon struct {
	Width    string      `xml:"width,attr"`
	Layer    string      `xml:"layer,attr"`
	Vertices []xmlVertex `xml:"vertex"`
}

type xmlVertex struct {
	X     string `xml:"x,attr"`
	Y     string `xml:"y,attr"`
	Curve string `xml:"curve,attr"`
}

type xmlText struct {
	X       string `xml:"x,attr"`
	Y       string `xml:"y,attr"`
	Size    string `xml:"size,attr"`
	Layer   string `xml:"layer,attr"`
	Rot     string `xml:"rot,attr"`
	Align   string `xml:"align,attr"`
	Content string `xml:",chardata"`
}

type xmlHole struct {
	X     string `xml:"x,attr"`
	Y     string `xml:"y,attr"`
	Drill string `xml:"drill,attr"`
}

type xmlPad struct {
	Name     string `xml:"name,attr"`
	X        string `xml:"x,attr"`
	Y        string `xml:"y,attr"`
	Drill    string `xml:"drill,attr"`
	Diameter string `xml:"diameter,attr"`
	Shape    string `xml:"shape,attr"`
	Rot      string `xml:"rot,attr"`
}

type xmlSMD struct {
	Name      string `xml:"name,attr"`
	X         string `xml:"x,attr"`
	Y         string `xml:"y,attr"`
	DX        string `xml:"dx,attr"`
	DY        string `xml:"dy,attr"`
	Layer     string `xml:"layer,attr"`
	Roundness string `xml:"roundness,attr"`
	Rot       string `xml:"rot,attr"`
}

type xmlVia struct {
	X        string `xml:"x,attr"`
	Y        string `xml:"y,attr"`
	Extent   string `xml:"extent,attr"`
	Drill    string `xml:"drill,attr"`
	Diameter string `xml:"diameter,attr"`
}
