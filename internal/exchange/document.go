// Package exchange implements the typed view over the POS exchange file,
// the interchange document through which the terminal and this engine
// communicate. The engine owns four fields (identificador, idpromocion,
// aplicarmm, estadomm) and must preserve everything else in the file.
package exchange

import (
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"mixmatch/internal/model"
)

// Element names owned by the engine inside the exchange file.
const (
	fieldBarcode     = "identificador"
	fieldPromotionID = "idpromocion"
	fieldMixAndMatch = "aplicarmm"
	fieldStatus      = "estadomm"
)

// CancelValue is the aplicarmm value telling the POS not to apply any
// promotion line.
const CancelValue = "0"

// element is a generic XML node. Parsing into a generic tree instead of a
// fixed struct is what lets a rewrite preserve fields the engine does not
// own.
type element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Content  string     `xml:",chardata"`
	Children []element  `xml:",any"`
}

func (e *element) child(name string) *element {
	for i := range e.Children {
		if e.Children[i].XMLName.Local == name {
			return &e.Children[i]
		}
	}
	return nil
}

// Document is the typed view over one exchange file. It is created once per
// invocation, mutated at most a handful of times by the executing action,
// and discarded at process exit. Every mutation reloads and rewrites the
// whole file, so the POS never observes a partial write of engine fields.
type Document struct {
	path   string
	logger zerolog.Logger
	root   element
}

// Open loads the exchange file at path. A missing file is fatal: there is
// nothing to act on.
func Open(path string, logger zerolog.Logger) (*Document, error) {
	d := &Document{
		path:   path,
		logger: logger.With().Str("component", "exchange").Str("file", path).Logger(),
	}
	if err := d.load(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Document) load() error {
	data, err := os.ReadFile(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.ErrMissingExchangeFile
		}
		return fmt.Errorf("failed to read exchange file %s: %w", d.path, err)
	}

	var root element
	if err := xml.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("failed to parse exchange file %s: %w", d.path, err)
	}

	d.root = root
	return nil
}

// Barcode returns the scanned value set by the POS, or the empty string
// when the field is absent.
func (d *Document) Barcode() string {
	if c := d.root.child(fieldBarcode); c != nil {
		return strings.TrimSpace(c.Content)
	}
	return ""
}

// PromotionID returns the numeric promotion identifier set by the POS, or 0
// when the field is absent or not numeric.
func (d *Document) PromotionID() int {
	c := d.root.child(fieldPromotionID)
	if c == nil {
		return 0
	}
	id, err := strconv.Atoi(strings.TrimSpace(c.Content))
	if err != nil {
		d.logger.Warn().Str("value", c.Content).Msg("promotion id is not numeric")
		return 0
	}
	return id
}

// MixAndMatch returns the current aplicarmm value.
func (d *Document) MixAndMatch() string {
	if c := d.root.child(fieldMixAndMatch); c != nil {
		return strings.TrimSpace(c.Content)
	}
	return ""
}

// Status returns the current estadomm value.
func (d *Document) Status() string {
	if c := d.root.child(fieldStatus); c != nil {
		return strings.TrimSpace(c.Content)
	}
	return ""
}

// Activate sets the activation flag to the given value, normally the
// manager promotion id the POS is configured to apply, and persists the
// whole document.
func (d *Document) Activate(value string) error {
	d.logger.Info().Str("value", value).Msg("activating mix and match")
	return d.set(fieldMixAndMatch, value)
}

// Cancel sets the activation flag to the cancellation value and persists.
func (d *Document) Cancel() error {
	d.logger.Info().Msg("cancelling mix and match")
	return d.set(fieldMixAndMatch, CancelValue)
}

// SetStatus sets the human-readable outcome shown on the POS screen and
// persists.
func (d *Document) SetStatus(message string) error {
	d.logger.Info().Str("status", message).Msg("setting mix and match status")
	return d.set(fieldStatus, message)
}

// set reloads the file, updates one owned field and rewrites the whole
// document. Reloading first keeps fields the engine does not own intact
// even if the POS rewrote the file since Open.
func (d *Document) set(name, value string) error {
	if err := d.load(); err != nil {
		return err
	}

	c := d.root.child(name)
	if c == nil {
		d.root.Children = append(d.root.Children, element{
			XMLName: xml.Name{Local: name},
		})
		c = &d.root.Children[len(d.root.Children)-1]
	}
	c.Content = value

	data, err := xml.MarshalIndent(&d.root, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode exchange file: %w", err)
	}

	if err := os.WriteFile(d.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write exchange file %s: %w", d.path, err)
	}
	return nil
}
