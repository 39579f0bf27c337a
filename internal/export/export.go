// Package export renders dashboard listings as xlsx workbooks.
package export

import (
	"bytes"
	"fmt"
	"time"

	"tourdesk/internal/model"

	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type of every workbook produced here
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type column struct {
	header string
	width  float64
}

type sheet struct {
	name    string
	columns []column
	rows    [][]interface{}
}

// Visitors writes the visitor log, one row per visitor.
func Visitors(visitors []model.Visitor) ([]byte, error) {
	s := sheet{
		name: "Visitor Log",
		columns: []column{
			{"First Name", 18}, {"Last Name", 18}, {"Contact Number", 16}, {"Email", 28},
			{"Purpose", 30}, {"Person to Visit", 22}, {"Visit Date", 12}, {"Expected Time In", 16},
			{"Time In", 20}, {"Time Out", 20}, {"Status", 14}, {"Remarks", 14},
		},
	}
	for _, v := range visitors {
		remarks := ""
		if v.Remarks != nil {
			remarks = *v.Remarks
		}
		s.rows = append(s.rows, []interface{}{
			v.FirstName, v.LastName, v.ContactNumber, v.Email,
			v.Purpose, v.PersonToVisit, v.VisitDate.Format("2006-01-02"), v.ExpectedTimeIn,
			stamp(v.TimeIn), stamp(v.TimeOut), v.Status, remarks,
		})
	}
	return s.render()
}

// Users writes the applicant list without credentials or reset state.
func Users(users []model.User) ([]byte, error) {
	s := sheet{
		name: "Users",
		columns: []column{
			{"Full Name", 30}, {"Email", 28}, {"Contact", 16}, {"Birthday", 12}, {"Age", 6},
			{"Address", 36}, {"Zipcode", 10}, {"Approval Status", 16}, {"Approved At", 20},
			{"Decline Reason", 30}, {"Registered", 20},
		},
	}
	for _, u := range users {
		reason := ""
		if u.DeclineReason != nil {
			reason = *u.DeclineReason
		}
		s.rows = append(s.rows, []interface{}{
			u.FullName(), u.Email, u.Contact, u.Birthday.Format("2006-01-02"), u.Age,
			u.Address, u.Zipcode, u.ApprovalStatus, stamp(u.ApprovedAt),
			reason, u.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	return s.render()
}

func stamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}

func (s sheet) render() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(s.name)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	headers := make([]interface{}, len(s.columns))
	for i, c := range s.columns {
		headers[i] = c.header
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(s.name, name, name, c.width); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}
	if err := f.SetSheetRow(s.name, "A1", &headers); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(s.columns), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(s.name, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	for i, row := range s.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := row
		if err := f.SetSheetRow(s.name, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(s.name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("failed to freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
