// Package export writes the business directory to an XLSX workbook, one
// sheet per category plus a combined sheet.
package export

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/formby-guide/guide-cli/internal/model"
	"github.com/formby-guide/guide-cli/internal/store"
)

var header = []string{
	"Name", "Category", "Address", "Postcode", "Phone", "Website",
	"Rating", "Reviews", "Price", "Hygiene", "Hygiene Date", "Updated",
}

// Write queries the store and writes the workbook to path.
func Write(ctx context.Context, st store.Store, path string, categories []string) (int, error) {
	log := zap.L().With(zap.String("component", "export"))

	businesses, err := st.ListBusinesses(ctx, store.ListFilter{CategorySlugs: categories})
	if err != nil {
		return 0, eris.Wrap(err, "export: list businesses")
	}
	sort.Slice(businesses, func(i, j int) bool {
		if businesses[i].CategorySlug != businesses[j].CategorySlug {
			return businesses[i].CategorySlug < businesses[j].CategorySlug
		}
		return businesses[i].Name < businesses[j].Name
	})

	f := xlsx.NewFile()

	all, err := f.AddSheet("All Businesses")
	if err != nil {
		return 0, eris.Wrap(err, "export: add sheet")
	}
	writeHeader(all)

	sheets := make(map[string]*xlsx.Sheet)
	for _, b := range businesses {
		writeRow(all, b)

		sheet, ok := sheets[b.CategorySlug]
		if !ok {
			sheet, err = f.AddSheet(sheetName(b.CategorySlug))
			if err != nil {
				return 0, eris.Wrapf(err, "export: add sheet %s", b.CategorySlug)
			}
			writeHeader(sheet)
			sheets[b.CategorySlug] = sheet
		}
		writeRow(sheet, b)
	}

	if err := f.Save(path); err != nil {
		return 0, eris.Wrapf(err, "export: save %s", path)
	}

	log.Info("workbook written",
		zap.String("path", path),
		zap.Int("businesses", len(businesses)),
		zap.Int("categories", len(sheets)),
	)
	return len(businesses), nil
}

func writeHeader(sheet *xlsx.Sheet) {
	row := sheet.AddRow()
	for _, h := range header {
		row.AddCell().SetString(h)
	}
}

func writeRow(sheet *xlsx.Sheet, b model.Business) {
	row := sheet.AddRow()
	row.AddCell().SetString(b.Name)
	row.AddCell().SetString(b.CategorySlug)
	row.AddCell().SetString(strValue(b.Address))
	row.AddCell().SetString(strValue(b.Postcode))
	row.AddCell().SetString(strValue(b.Phone))
	row.AddCell().SetString(strValue(b.Website))
	if b.Rating != nil {
		row.AddCell().SetFloat(*b.Rating)
	} else {
		row.AddCell()
	}
	if b.ReviewCount != nil {
		row.AddCell().SetInt(*b.ReviewCount)
	} else {
		row.AddCell()
	}
	row.AddCell().SetString(strValue(b.PriceRange))
	row.AddCell().SetString(strValue(b.HygieneRating))
	if b.HygieneRatingDate != nil {
		row.AddCell().SetString(b.HygieneRatingDate.Format("2006-01-02"))
	} else {
		row.AddCell()
	}
	row.AddCell().SetString(b.UpdatedAt.Format(time.RFC3339))
}

func strValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// sheetName turns a category slug into a sheet title ("nature-walks" →
// "Nature Walks"), truncated to the 31-character sheet name limit.
func sheetName(slug string) string {
	words := strings.Split(slug, "-")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	name := strings.Join(words, " ")
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}

// Filename is the default export name, stamped with the current date.
func Filename(now time.Time) string {
	return fmt.Sprintf("formby-guide-%s.xlsx", now.Format("2006-01-02"))
}
