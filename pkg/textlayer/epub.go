package textlayer

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/shelfsync/shelfsync/pkg/errcodes"
	"github.com/shelfsync/shelfsync/pkg/htmlutil"
	"github.com/shelfsync/shelfsync/pkg/identifiers"
)

// EPUBSource extracts text from EPUB archives by reading the package
// document and stripping the leading spine content documents. One spine item
// counts as one page of the leading window.
type EPUBSource struct{}

// opfPackage is the subset of the EPUB package document the pipeline needs.
type opfPackage struct {
	XMLName  xml.Name `xml:"package"`
	Metadata struct {
		Title   []string `xml:"title"`
		Creator []struct {
			Text string `xml:",chardata"`
		} `xml:"creator"`
		Identifier []struct {
			Text   string `xml:",chardata"`
			Scheme string `xml:"scheme,attr"`
		} `xml:"identifier"`
		Language string `xml:"language"`
	} `xml:"metadata"`
	Manifest struct {
		Item []struct {
			ID        string `xml:"id,attr"`
			Href      string `xml:"href,attr"`
			MediaType string `xml:"media-type,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		Itemref []struct {
			Idref string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

// EmbeddedMetadata is descriptive metadata carried inside the document file
// itself, used to enrich records without a lookup round trip.
type EmbeddedMetadata struct {
	Title    string
	Authors  []string
	ISBN     string
	Language string
}

// Text returns the stripped text of the first pages spine items.
func (s *EPUBSource) Text(_ context.Context, filePath string, pages int) (string, error) {
	r, err := zip.OpenReader(filePath)
	if err != nil {
		return "", errcodes.TextLayerUnavailable(filePath)
	}
	defer r.Close()

	pkg, opfDir, err := readPackage(&r.Reader)
	if err != nil {
		return "", errcodes.TextLayerUnavailable(filePath)
	}

	hrefs := map[string]string{}
	for _, item := range pkg.Manifest.Item {
		hrefs[item.ID] = item.Href
	}

	entries := map[string]*zip.File{}
	for _, f := range r.File {
		entries[f.Name] = f
	}

	var b strings.Builder
	read := 0
	for _, ref := range pkg.Spine.Itemref {
		if read >= pages {
			break
		}
		href, ok := hrefs[ref.Idref]
		if !ok {
			continue
		}
		entry, ok := entries[path.Join(opfDir, href)]
		if !ok {
			continue
		}

		rc, err := entry.Open()
		if err != nil {
			continue
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}

		b.WriteString(htmlutil.StripTags(string(content)))
		b.WriteByte('\n')
		read++
	}

	if strings.TrimSpace(b.String()) == "" {
		return "", errcodes.TextLayerUnavailable(filePath)
	}

	return b.String(), nil
}

// Metadata reads the descriptive metadata embedded in an EPUB's package
// document. An identifier is only reported when it is a checksum-valid ISBN.
func (s *EPUBSource) Metadata(filePath string) (*EmbeddedMetadata, error) {
	r, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer r.Close()

	pkg, _, err := readPackage(&r.Reader)
	if err != nil {
		return nil, err
	}

	meta := &EmbeddedMetadata{
		Language: strings.TrimSpace(pkg.Metadata.Language),
	}
	if len(pkg.Metadata.Title) > 0 {
		meta.Title = strings.TrimSpace(pkg.Metadata.Title[0])
	}
	for _, creator := range pkg.Metadata.Creator {
		if name := strings.TrimSpace(creator.Text); name != "" {
			meta.Authors = append(meta.Authors, name)
		}
	}
	for _, ident := range pkg.Metadata.Identifier {
		normalized := identifiers.Normalize(ident.Text)
		if identifiers.Valid(normalized) {
			meta.ISBN = normalized
			break
		}
	}

	return meta, nil
}

// readPackage locates and parses the .opf package document in the archive,
// returning it along with its directory for resolving spine hrefs.
func readPackage(r *zip.Reader) (*opfPackage, string, error) {
	for _, f := range r.File {
		if filepath.Ext(f.Name) != ".opf" {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, "", errors.WithStack(err)
		}
		defer rc.Close()

		pkg := &opfPackage{}
		if err := xml.NewDecoder(rc).Decode(pkg); err != nil {
			return nil, "", errors.WithStack(err)
		}
		return pkg, path.Dir(f.Name), nil
	}

	return nil, "", errors.New("no package document found")
}
