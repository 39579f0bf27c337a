package export

import (
	"bytes"
	"testing"
	"time"

	"tourdesk/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestVisitors(t *testing.T) {
	in := time.Date(2026, 3, 2, 9, 15, 0, 0, time.UTC)
	remark := model.RemarkCompleted
	data, err := Visitors([]model.Visitor{{
		FirstName:      "Ana",
		LastName:       "Reyes",
		ContactNumber:  "09171234567",
		Purpose:        "Tour briefing",
		PersonToVisit:  "Front desk",
		VisitDate:      time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		ExpectedTimeIn: "09:00",
		TimeIn:         &in,
		Status:         model.VisitorCheckedIn,
		Remarks:        &remark,
	}})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Visitor Log"}, f.GetSheetList())
	rows, err := f.GetRows("Visitor Log")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "First Name", rows[0][0])
	assert.Equal(t, "Ana", rows[1][0])
	assert.Equal(t, "2026-03-02", rows[1][6])
	assert.Equal(t, "2026-03-02 09:15", rows[1][8])
	assert.Equal(t, "Completed", rows[1][11])
}

func TestUsers_OmitsCredentials(t *testing.T) {
	data, err := Users([]model.User{{
		FirstName:      "Jose",
		LastName:       "Cruz",
		Email:          "jose@example.com",
		Password:       "$2a$10$secrethash",
		ApprovalStatus: model.ApprovalPending,
	}})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Users")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Jose Cruz", rows[1][0])
	for _, cell := range rows[1] {
		assert.NotContains(t, cell, "secrethash")
	}
}

func TestEmptyListStillHasHeader(t *testing.T) {
	data, err := Visitors(nil)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Visitor Log")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
