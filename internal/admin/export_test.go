package admin

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	telemetry "fleet-cloud/internal/telemetry/domain"
)

func sampleRecords() []telemetry.HistoryRecord {
	lat, lng := 37.5665, 126.978
	return []telemetry.HistoryRecord{
		{ID: "1", RobotID: "A1", Battery: 87, Status: "MOVING", Lat: &lat, Lng: &lng, CreatedAt: time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)},
		{ID: "2", RobotID: "B2", Battery: 12, Status: "CHARGING", CreatedAt: time.Date(2026, 8, 28, 10, 5, 0, 0, time.UTC)},
	}
}

func TestBuildTelemetryXLSX(t *testing.T) {
	data, err := BuildTelemetryXLSX(sampleRecords())
	if err != nil {
		t.Fatalf("build xlsx: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("telemetry")
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus two rows, got %d", len(rows))
	}
	if rows[1][0] != "A1" || rows[1][2] != "MOVING" {
		t.Fatalf("unexpected first data row: %v", rows[1])
	}
	if rows[2][0] != "B2" {
		t.Fatalf("unexpected second data row: %v", rows[2])
	}
}

func TestBuildTelemetryPDF(t *testing.T) {
	data, err := BuildTelemetryPDF(sampleRecords())
	if err != nil {
		t.Fatalf("build pdf: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatal("expected a PDF document")
	}
}
