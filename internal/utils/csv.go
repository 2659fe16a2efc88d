package utils

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/1cbyc/SyntheticQuantEngine/internal/domain"
)

// WriteCandlesToCSV writes a candle series to a CSV file with a header row.
func WriteCandlesToCSV(series domain.Series, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	writer.Write([]string{"open_time", "close_time", "symbol", "interval", "open", "high", "low", "close", "volume"})

	for _, c := range series {
		writer.Write([]string{
			c.OpenTime.Format(time.RFC3339),
			c.CloseTime.Format(time.RFC3339),
			c.Symbol,
			c.Interval,
			strconv.FormatFloat(c.Open, 'f', -1, 64),
			strconv.FormatFloat(c.High, 'f', -1, 64),
			strconv.FormatFloat(c.Low, 'f', -1, 64),
			strconv.FormatFloat(c.Close, 'f', -1, 64),
			strconv.FormatFloat(c.Volume, 'f', -1, 64),
		})
	}
	return writer.Error()
}

// ReadCandlesFromCSV loads a candle series from a CSV file written by
// WriteCandlesToCSV. Rows with unparseable values fail the whole load.
func ReadCandlesFromCSV(filename string) (domain.Series, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv %s: %w", filename, err)
	}
	if len(records) < 2 {
		return domain.Series{}, nil
	}

	series := make(domain.Series, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) != 9 {
			return nil, fmt.Errorf("csv %s row %d: expected 9 columns, got %d", filename, i+2, len(rec))
		}
		openTime, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			return nil, fmt.Errorf("csv %s row %d: bad open_time: %w", filename, i+2, err)
		}
		closeTime, err := time.Parse(time.RFC3339, rec[1])
		if err != nil {
			return nil, fmt.Errorf("csv %s row %d: bad close_time: %w", filename, i+2, err)
		}
		vals := make([]float64, 5)
		for j, raw := range rec[4:] {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("csv %s row %d col %d: %w", filename, i+2, j+5, err)
			}
			vals[j] = v
		}
		series = append(series, &domain.Candle{
			OpenTime:  openTime,
			CloseTime: closeTime,
			Symbol:    rec[2],
			Interval:  rec[3],
			Open:      vals[0],
			High:      vals[1],
			Low:       vals[2],
			Close:     vals[3],
			Volume:    vals[4],
		})
	}
	return series, nil
}
