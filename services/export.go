package services

import (
	"bytes"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"lms-ai-backend/internal/logger"
	"lms-ai-backend/models"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const timeLayout = "2006-01-02 15:04:05"

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// sheet writes rows to one worksheet of a workbook.
type sheet struct {
	f    *excelize.File
	name string
	row  int
}

func (s *sheet) append(values ...interface{}) error {
	s.row++
	cell, err := excelize.CoordinatesToCellName(1, s.row)
	if err != nil {
		return err
	}
	return s.f.SetSheetRow(s.name, cell, &values)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func newWorkbook(sheets ...string) (*excelize.File, error) {
	f := excelize.NewFile()
	for i, name := range sheets {
		index, err := f.NewSheet(name)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
		if i == 0 {
			f.SetActiveSheet(index)
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to remove default sheet: %w", err)
	}
	return f, nil
}

func writeWorkbook(f *excelize.File) ([]byte, error) {
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warn("Failed to close workbook", "error", err)
		}
	}()

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}

// QuizResultsWorkbook renders a completed quiz as a Summary sheet and a
// per-question Results sheet.
func QuizResultsWorkbook(results *models.QuizResults) ([]byte, error) {
	f, err := newWorkbook("Results", "Summary")
	if err != nil {
		return nil, err
	}

	out := &sheet{f: f, name: "Results"}
	if err := out.append("#", "Question", "Your Answer", "Correct Answer", "Correct", "Explanation"); err != nil {
		f.Close()
		return nil, err
	}
	for _, r := range results.Results {
		if err := out.append(r.QuestionIndex+1, r.Question, r.SelectedAnswer, r.CorrectAnswer, yesNo(r.IsCorrect), r.Explanation); err != nil {
			f.Close()
			return nil, err
		}
	}
	f.SetColWidth("Results", "B", "B", 60)
	f.SetColWidth("Results", "C", "D", 30)
	f.SetColWidth("Results", "F", "F", 60)

	completed := ""
	if results.CompletedAt != nil {
		completed = results.CompletedAt.UTC().Format(timeLayout)
	}
	summary := &sheet{f: f, name: "Summary"}
	rows := [][]interface{}{
		{"Quiz", results.Title},
		{"Document", results.DocumentTitle},
		{"Score", results.Score},
		{"Correct Answers", results.CorrectAnswers},
		{"Total Questions", results.TotalQuestions},
		{"Completed At", completed},
	}
	for _, row := range rows {
		if err := summary.append(row...); err != nil {
			f.Close()
			return nil, err
		}
	}
	f.SetColWidth("Summary", "A", "B", 25)

	return writeWorkbook(f)
}

// FlashcardSetWorkbook renders every card of a set, one per row.
func FlashcardSetWorkbook(set *models.FlashcardSet) ([]byte, error) {
	f, err := newWorkbook("Flashcards")
	if err != nil {
		return nil, err
	}

	out := &sheet{f: f, name: "Flashcards"}
	if err := out.append("#", "Question", "Answer", "Difficulty", "Starred", "Review Count", "Last Reviewed"); err != nil {
		f.Close()
		return nil, err
	}
	for i, c := range set.Cards {
		reviewed := ""
		if c.LastReviewed != nil {
			reviewed = c.LastReviewed.UTC().Format(timeLayout)
		}
		if err := out.append(i+1, c.Question, c.Answer, c.Difficulty, yesNo(c.IsStarred), c.ReviewCount, reviewed); err != nil {
			f.Close()
			return nil, err
		}
	}
	f.SetColWidth("Flashcards", "B", "C", 60)
	f.SetColWidth("Flashcards", "D", "G", 15)

	return writeWorkbook(f)
}

// ExportFileName turns a title into a safe attachment name.
func ExportFileName(title, fallback string) string {
	name := strings.Trim(unsafeFileChars.ReplaceAllString(strings.TrimSpace(title), "_"), "_.")
	if name == "" {
		name = fallback
	}
	if len(name) > 80 {
		name = name[:80]
	}
	return name + ".xlsx"
}

// StreamXLSX sends an in-memory workbook as a download.
func StreamXLSX(c *gin.Context, fileName string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Header("Content-Length", strconv.Itoa(len(data)))
	c.Data(http.StatusOK, xlsxContentType, data)
}
