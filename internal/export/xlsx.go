// Package export renders list rankings as spreadsheets.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/meur/eloforge/internal/models"
)

// ContentType is the MIME type of the workbook WriteRanking produces
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var header = []interface{}{"Rank", "Title", "Rating", "TMDB ID", "Poster", "Added"}

// WriteRanking writes the ranking of list to w as an XLSX workbook with one
// sheet named after the list. imageURL resolves poster paths; nil leaves them
// as stored.
func WriteRanking(w io.Writer, list *models.List, ranking []models.RankedItem, imageURL func(string) string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := SheetName(list.Title)
	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, item := range ranking {
		poster := item.ImageRef
		if imageURL != nil {
			poster = imageURL(poster)
		}
		row := []interface{}{
			item.Rank,
			item.Title,
			item.Rating,
			item.TMDBID,
			poster,
			item.CreatedAt.Format("2006-01-02"),
		}
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, axis, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(sheet, "B", "B", 40); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "E", "E", 60); err != nil {
		return err
	}
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// SheetName turns a list title into a valid worksheet name
func SheetName(title string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '-'
		}
		return r
	}, strings.TrimSpace(title))
	name = strings.Trim(name, "'")

	if runes := []rune(name); len(runes) > 31 {
		name = string(runes[:31])
	}
	if name == "" {
		return "Ranking"
	}
	return name
}
