package fitscube

import (
	"fmt"
	"io"
	"os"

	"github.com/astrogo/fitsio"

	"github.com/banshee-data/channelfit/internal/cube"
	"github.com/banshee-data/channelfit/internal/model"
	"github.com/banshee-data/channelfit/internal/monitoring"
)

// Encode writes c as a 64-bit float primary image with the non-structural
// cards of hdr. Invalid entries are written as NaN.
func Encode(w io.Writer, hdr cube.Header, c *cube.Cube) error {
	f, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	img := fitsio.NewImage(-64, []int{c.NX, c.NY, c.NV})
	defer img.Close()

	var cards []fitsio.Card
	for _, card := range hdr.Cards {
		if structural(card.Name) {
			continue
		}
		cards = append(cards, fitsio.Card{Name: card.Name, Value: card.Value, Comment: card.Comment})
	}
	if err := img.Header().Append(cards...); err != nil {
		return fmt.Errorf("append header: %w", err)
	}
	data := c.NaNData()
	if err := img.Write(&data); err != nil {
		return fmt.Errorf("write image data: %w", err)
	}
	if err := f.Write(img); err != nil {
		return err
	}
	return f.Close()
}

// WriteFile encodes c to path, replacing any existing file.
func WriteFile(path string, hdr cube.Header, c *cube.Cube) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Encode(out, hdr, c); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return out.Close()
}

// FileOrder returns c with channels in the file's order: reversed when
// the loader flipped the velocity axis.
func FileOrder(c *cube.Cube, flipped bool) *cube.Cube {
	if !flipped {
		return c
	}
	idx := make([]int, c.NV)
	for k := range idx {
		idx[k] = c.NV - 1 - k
	}
	return c.Channels(idx)
}

// ProductSuffixes are the file name parts of each product.
var ProductSuffixes = [4]string{"model", "residual", "beforeconvolving", "beforescaling"}

// WriteProducts writes head.<suffix>.fits for every product with the
// observation's header and channel order.
func WriteProducts(head string, obs *cube.Observation, p model.Products) ([]string, error) {
	cubes := [4]*cube.Cube{p.Model, p.Residual, p.BeforeConvolving, p.BeforeScaling}
	paths := make([]string, 0, len(cubes))
	for i, c := range cubes {
		path := fmt.Sprintf("%s.%s.fits", head, ProductSuffixes[i])
		if err := WriteFile(path, obs.Header, FileOrder(c, obs.Flipped)); err != nil {
			return paths, err
		}
		monitoring.Logf("wrote %s", path)
		paths = append(paths, path)
	}
	return paths, nil
}
