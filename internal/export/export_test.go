package export

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"finboard/internal/core"
	"finboard/internal/storage"
)

func sample() core.Ledger {
	return core.Ledger{
		{ID: 1, Date: core.NewDate(2024, 1, 15), Amount: core.Money{Cents: 5000}, Category: "Food"},
		{ID: 2, Date: core.NewDate(2024, 2, 1), Amount: core.Money{Cents: 3050}, Category: "Transport", Receipt: "aGVsbG8="},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", JSON, false},
		{".CSV", CSV, false},
		{" pdf ", PDF, false},
		{"xlsx", XLSX, false},
		{"docx", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBackup(t *testing.T) {
	now := time.Date(2024, 2, 15, 9, 0, 0, 0, time.UTC)
	raw, err := Render(JSON, sample(), Options{Now: now})
	require.NoError(t, err)

	var got backupFile
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, now, got.ExportedAt)
	assert.Equal(t, 2, got.Count)
	require.Len(t, got.Transactions, 2)
	assert.Equal(t, "30.50", got.Transactions[1].Amount)
	assert.Equal(t, int64(3050), got.Transactions[1].AmountCents)
	assert.Equal(t, "aGVsbG8=", got.Transactions[1].Receipt)
	assert.Empty(t, got.Transactions[0].Receipt)
}

func TestCSVMatchesStoreFormat(t *testing.T) {
	raw, err := Render(CSV, sample(), Options{})
	require.NoError(t, err)

	back, err := storage.ReadCSV(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Len(t, back, 2)
	assert.Equal(t, "Transport", back[1].Category)
	assert.Equal(t, int64(3050), back[1].Amount.Cents)
}

func TestReport(t *testing.T) {
	raw, err := Render(PDF, sample(), Options{Symbol: "€"})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("%PDF-")))

	empty, err := Report(core.Ledger{}, "$")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(empty, []byte("%PDF-")))
}

func TestReport_Paginates(t *testing.T) {
	var l core.Ledger
	for i := 0; i < 120; i++ {
		l = append(l, core.Transaction{Date: core.NewDate(2024, 1, 1+i%28), Amount: core.Money{Cents: int64(i + 1)}, Category: "Other"})
	}
	pdf := buildReport(l, "$")
	require.NoError(t, pdf.Error())
	assert.GreaterOrEqual(t, pdf.PageCount(), 3)
}

func TestWorkbook(t *testing.T) {
	raw, err := Render(XLSX, sample(), Options{})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Date", "Amount", "Category", "Has Receipt"}, rows[0])
	assert.Equal(t, "2024-02-01", rows[2][0])
	assert.Equal(t, "Transport", rows[2][2])
	assert.Equal(t, "yes", rows[2][3])
}

func TestCache_RendersOncePerContent(t *testing.T) {
	c := NewCache(8, time.Minute)

	a, err := c.Render(CSV, sample(), "$")
	require.NoError(t, err)
	b, err := c.Render(CSV, sample(), "$")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, uint64(1), c.LRU().Stats().Hits)

	// A row written elsewhere changes the content and so the key.
	grown := append(sample(), core.Transaction{ID: 3, Date: core.NewDate(2024, 2, 3), Amount: core.Money{Cents: 100}, Category: "Gifts"})
	fresh, err := c.Render(CSV, grown, "$")
	require.NoError(t, err)
	assert.Contains(t, string(fresh), "2024-02-03,1.00,Gifts")
	assert.Equal(t, 2, c.LRU().Size())
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, fingerprint(sample()), fingerprint(sample()))
	assert.Equal(t, fingerprint(nil), fingerprint(core.Ledger{}))

	edited := sample()
	edited[0].Amount = core.Money{Cents: 5001}
	assert.NotEqual(t, fingerprint(sample()), fingerprint(edited))

	swapped := core.Ledger{sample()[1], sample()[0]}
	assert.NotEqual(t, fingerprint(sample()), fingerprint(swapped))
}
