package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/fdg312/meal-engine/internal/mealplans"
	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf"
)

// PlanSource returns the stored plan of a profile in [from, to].
type PlanSource interface {
	GetPlan(ctx context.Context, profileID uuid.UUID, from, to string) (mealplans.PlanResponse, error)
}

// Generator renders meal plan exports.
type Generator struct {
	plans PlanSource
	// fontPath is an optional UTF-8 TTF; core Helvetica is used otherwise.
	fontPath string
}

func NewGenerator(plans PlanSource, fontPath string) *Generator {
	return &Generator{plans: plans, fontPath: fontPath}
}

// GenerateReport loads the plan and renders it in req.Format.
func (g *Generator) GenerateReport(ctx context.Context, req CreateReportRequest) ([]byte, error) {
	plan, err := g.plans.GetPlan(ctx, req.ProfileID, req.From, req.To)
	if err != nil {
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}
	if len(plan.Days) == 0 {
		return nil, ErrEmptyPlan
	}

	switch req.Format {
	case FormatPDF:
		return g.generatePDF(plan)
	case FormatCSV:
		return generateCSV(plan)
	default:
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}
}

var csvHeader = []string{
	"date", "meal_type", "recipe", "calories", "protein_g", "carbs_g", "fats_g", "adjusted_ingredients",
}

// generateCSV writes one row per meal and a "total" row closing every day.
func generateCSV(plan mealplans.PlanResponse) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}

	for _, day := range plan.Days {
		for _, m := range day.Meals {
			row := []string{
				day.Date,
				m.MealType,
				m.RecipeName,
				strconv.Itoa(m.Nutrition.Calories),
				formatGrams(m.Nutrition.ProteinG),
				formatGrams(m.Nutrition.CarbsG),
				formatGrams(m.Nutrition.FatsG),
				adjustedIngredients(m),
			}
			if err := w.Write(row); err != nil {
				return nil, err
			}
		}

		total := []string{
			day.Date,
			"total",
			"",
			strconv.Itoa(day.Totals.Calories),
			formatGrams(day.Totals.ProteinG),
			formatGrams(day.Totals.CarbsG),
			formatGrams(day.Totals.FatsG),
			"",
		}
		if err := w.Write(total); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// adjustedIngredients lists "name base->amount unit" for every changed ingredient.
func adjustedIngredients(m mealplans.PlannedMealDTO) string {
	var parts []string
	for _, ing := range m.Ingredients {
		if !ing.Overridden {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s->%s %s", ing.Name, formatGrams(ing.BaseAmount), formatGrams(ing.Amount), ing.Unit))
	}
	return strings.Join(parts, "; ")
}

var pdfColumns = []struct {
	title string
	width float64
}{
	{"Meal", 32},
	{"Recipe", 70},
	{"kcal", 20},
	{"Protein", 22},
	{"Carbs", 22},
	{"Fats", 22},
}

func (g *Generator) generatePDF(plan mealplans.PlanResponse) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")

	fontName := "Helvetica"
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if g.fontPath != "" {
		pdf.AddUTF8Font("PlanFont", "", g.fontPath)
		if pdf.Err() {
			return nil, fmt.Errorf("failed to load font %s: %w", g.fontPath, pdf.Error())
		}
		fontName = "PlanFont"
		tr = func(s string) string { return s }
	}

	pdf.AddPage()
	pdf.SetFont(fontName, "", 16)
	pdf.Cell(0, 10, tr("Meal plan"))
	pdf.Ln(10)

	pdf.SetFont(fontName, "", 11)
	pdf.Cell(0, 7, tr(fmt.Sprintf("Period: %s to %s", plan.From, plan.To)))
	pdf.Ln(6)
	if t := plan.Targets; t != nil {
		pdf.Cell(0, 7, tr(fmt.Sprintf("Daily targets: %d kcal, protein %d g, carbs %d g, fats %d g",
			t.Calories, t.ProteinG, t.CarbsG, t.FatsG)))
		pdf.Ln(6)
	}
	pdf.Ln(4)

	for _, day := range plan.Days {
		pdf.SetFont(fontName, "", 12)
		pdf.Cell(0, 8, tr(day.Date))
		pdf.Ln(8)

		pdf.SetFont(fontName, "", 9)
		for i, col := range pdfColumns {
			ln := 0
			if i == len(pdfColumns)-1 {
				ln = 1
			}
			pdf.CellFormat(col.width, 6, tr(col.title), "1", ln, "C", false, 0, "")
		}

		for _, m := range day.Meals {
			g.drawRow(pdf, tr, m.MealType, m.RecipeName, m.Nutrition)
		}
		g.drawRow(pdf, tr, "total", "", day.Totals)

		for _, m := range day.Meals {
			if adj := adjustedIngredients(m); adj != "" {
				pdf.Cell(0, 5, tr(fmt.Sprintf("%s: %s", m.MealType, adj)))
				pdf.Ln(5)
			}
		}
		pdf.Ln(4)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	return buf.Bytes(), nil
}

func (g *Generator) drawRow(pdf *gofpdf.Fpdf, tr func(string) string, meal, recipe string, n mealplans.Nutrients) {
	cells := []string{
		meal,
		recipe,
		strconv.Itoa(n.Calories),
		formatGrams(n.ProteinG),
		formatGrams(n.CarbsG),
		formatGrams(n.FatsG),
	}
	for i, c := range cells {
		ln := 0
		if i == len(cells)-1 {
			ln = 1
		}
		align := "C"
		if i == 1 {
			align = "L"
		}
		pdf.CellFormat(pdfColumns[i].width, 6, tr(c), "1", ln, align, false, 0, "")
	}
}

func formatGrams(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
