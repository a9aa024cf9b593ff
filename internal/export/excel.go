package export

import (
	"bytes"
	"context"
	"fmt"

	"handover/internal/domain"

	"github.com/xuri/excelize/v2"
)

const requestsSheet = "Requests"

var requestHeaders = []string{
	"Request ID", "Item", "Requester", "Address", "Phone", "Status", "Submitted At",
}

// RequestsWorkbook renders all requests, grouped by item, into an XLSX
// workbook and returns the serialized bytes.
func RequestsWorkbook(ctx context.Context, store domain.Store) ([]byte, error) {
	items, err := store.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(requestsSheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	for col, header := range requestHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(requestsSheet, cell, header)
		_ = f.SetCellStyle(requestsSheet, cell, cell, headerStyle)
	}

	row := 2
	for _, item := range items {
		requests, err := store.ListRequests(ctx, item.ID)
		if err != nil {
			return nil, fmt.Errorf("list requests for item %s: %w", item.ID, err)
		}

		for _, req := range requests {
			values := []interface{}{
				req.ID,
				item.Name,
				req.RequesterName,
				req.RequesterAddress,
				req.RequesterPhone,
				req.Status,
				req.SubmittedAt.Format("2006-01-02 15:04:05"),
			}
			for col, value := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row)
				_ = f.SetCellValue(requestsSheet, cell, value)
			}
			row++
		}
	}

	_ = f.SetColWidth(requestsSheet, "A", "A", 38)
	_ = f.SetColWidth(requestsSheet, "B", "G", 24)
	_ = f.DeleteSheet("Sheet1")

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
