// Package citation renders fragments into the citation strings shown to users.
// The output format is a user-visible contract.
package citation

import (
	"math"
	"strconv"
	"strings"

	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/model"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/temporal"
)

// Format renders f as a citation. tc is the fragment's temporal context, or nil.
//
// Spreadsheet cells render as
//
//	Selon la cellule C12 (feuille 'Ventes', fichier sales.xlsx, date: 15 décembre 2025): 150 unités (+25% vs période précédente)
//
// where the date is left out for undated cells and the trend clause only appears for an
// up or down context with a defined delta. PDF pages render as
//
//	Selon la page 3 du fichier rapport.pdf: {content}
//
// and never carry a trend clause.
func Format(f *model.Fragment, tc *model.TemporalContext) (string, error) {
	if f.Position == nil {
		return "", &FormatError{FragmentID: f.ID, Missing: "position"}
	}
	if missing := f.Position.Complete(); missing != "" {
		return "", &FormatError{FragmentID: f.ID, SourceKind: f.Position.Kind(), Missing: missing}
	}

	switch p := f.Position.(type) {
	case model.SpreadsheetCell:
		return formatCell(f, p, tc), nil
	case model.PDFPage:
		return formatPage(f, p), nil
	default:
		return "", &FormatError{FragmentID: f.ID, SourceKind: p.Kind(), Missing: "position"}
	}
}

// FormatAll renders fragments in order, looking up each temporal context by fragment id.
// It stops at the first FormatError.
func FormatAll(fragments []model.Fragment, contexts map[model.FragmentKey]model.TemporalContext) ([]string, error) {
	out := make([]string, 0, len(fragments))
	for i := range fragments {
		var tc *model.TemporalContext
		if c, ok := contexts[fragments[i].Key()]; ok {
			tc = &c
		}
		line, err := Format(&fragments[i], tc)
		if err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, nil
}

func formatCell(f *model.Fragment, p model.SpreadsheetCell, tc *model.TemporalContext) string {
	var b strings.Builder
	b.WriteString("Selon la cellule ")
	b.WriteString(p.CellRef)
	b.WriteString(" (feuille '")
	b.WriteString(p.SheetName)
	b.WriteString("', fichier ")
	b.WriteString(p.FileName)
	if f.ExtractedDate != nil {
		b.WriteString(", date: ")
		b.WriteString(temporal.FormatDateFR(*f.ExtractedDate))
	}
	b.WriteString("): ")
	b.WriteString(f.Content)
	if clause := trendClause(tc); clause != "" {
		b.WriteString(" (")
		b.WriteString(clause)
		b.WriteString(")")
	}
	return b.String()
}

func formatPage(f *model.Fragment, p model.PDFPage) string {
	return "Selon la page " + strconv.Itoa(p.PageNumber) + " du fichier " + p.FileName + ": " + f.Content
}

// trendClause renders "+25% vs période précédente", or "" for flat and undefined trends.
func trendClause(tc *model.TemporalContext) string {
	if tc == nil || tc.DeltaPct == nil {
		return ""
	}
	var sign string
	switch tc.Direction {
	case model.DirectionUp:
		sign = "+"
	case model.DirectionDown:
		sign = "-"
	default:
		return ""
	}
	return sign + FormatPercent(math.Abs(*tc.DeltaPct)) + "% vs période précédente"
}

// FormatPercent rounds v to one decimal and drops a trailing ".0", so 25.0 renders as
// "25" and 12.345 as "12.3".
func FormatPercent(v float64) string {
	rounded := math.Round(v*10) / 10
	if rounded == 0 {
		// -0 renders as "0".
		rounded = 0
	}
	return strconv.FormatFloat(rounded, 'f', -1, 64)
}
