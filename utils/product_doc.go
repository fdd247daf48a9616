package utils

import (
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"time"

	"github.com/CloudyKit/jet"
)

// ProductDoc is the metadata document written next to every mosaic
// product, rendered from a template under DataDir/templates.
type ProductDoc struct {
	Product     string
	Year        int
	Bands       []string
	EPSG        int
	Width       int
	Height      int
	Geot        []float64
	SourceFiles []string
	Created     string
}

func NewProductDoc(product string, year int, bands []string, grid *Grid, sources []string) *ProductDoc {
	return &ProductDoc{
		Product:     product,
		Year:        year,
		Bands:       bands,
		EPSG:        grid.EPSG,
		Width:       grid.Width,
		Height:      grid.Height,
		Geot:        grid.Geot,
		SourceFiles: sources,
		Created:     time.Now().UTC().Format(ISOFormat),
	}
}

// Render writes the product document next to the raster it describes.
func (d *ProductDoc) Render(rasterPath string, templateName string) error {
	view := jet.NewSet(jet.SafeWriter(func(w io.Writer, b []byte) {
		w.Write(b)
	}), DataDir+"/templates", "/")

	template, err := view.GetTemplate(templateName)
	if err != nil {
		return fmt.Errorf("Error loading product template %s: %v", templateName, err)
	}

	var resBuf bytes.Buffer
	vars := make(jet.VarMap)
	if err = template.Execute(&resBuf, vars, d); err != nil {
		return fmt.Errorf("Error rendering product template %s: %v", templateName, err)
	}

	return ioutil.WriteFile(rasterPath+".xml", resBuf.Bytes(), 0644)
}
