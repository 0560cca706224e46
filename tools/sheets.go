package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetRow é a linha registrada na planilha de leads.
type SheetRow struct {
	Nome         string
	Whatsapp     string
	Segmento     string
	Origem       string
	Status       string
	Qualificacao string
	Etapa        string
}

// Values returns the row cells in column order.
func (r SheetRow) Values(now time.Time) []interface{} {
	status := r.Status
	if status == "" {
		status = "novo"
	}
	return []interface{}{
		r.Nome,
		r.Whatsapp,
		r.Segmento,
		r.Origem,
		now.Format("02/01/2006 15:04:05"),
		status,
		r.Qualificacao,
		r.Etapa,
	}
}

// SheetsClient appends leads to a Google spreadsheet.
type SheetsClient struct {
	service    *sheets.Service
	documentID string
	now        func() time.Time
}

// NewSheetsClient authenticates with a service-account credentials file.
func NewSheetsClient(ctx context.Context, credentialsFile, documentID string, opts ...option.ClientOption) (*SheetsClient, error) {
	if strings.TrimSpace(documentID) == "" {
		return nil, fmt.Errorf("google sheets document id não configurado")
	}
	if credentialsFile != "" {
		opts = append([]option.ClientOption{option.WithCredentialsFile(credentialsFile)}, opts...)
	}
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &SheetsClient{service: srv, documentID: documentID, now: time.Now}, nil
}

// AppendLead adds one row after the last filled line of the first sheet.
func (c *SheetsClient) AppendLead(ctx context.Context, row SheetRow) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{row.Values(c.now())}}
	_, err := c.service.Spreadsheets.Values.
		Append(c.documentID, "A1", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets append: %w", err)
	}
	return nil
}
