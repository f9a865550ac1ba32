package schedule

import (
	"bytes"
	"encoding/csv"
	"time"

	log "github.com/sirupsen/logrus"
)

type Renderer interface {
	RenderDays(days []Day) (string, error)
}

type CsvRendererImpl struct {
}

func NewCsvRenderer() *CsvRendererImpl {
	return &CsvRendererImpl{}
}

// RenderDays writes one row per event with a header row. Times are rendered
// in the location the days were grouped in.
func (c *CsvRendererImpl) RenderDays(days []Day) (string, error) {
	data := make([][]string, 0, 1+countEvents(days))
	data = append(data, []string{"Day", "Start", "End", "Name", "Type", "Location"})
	for _, day := range days {
		loc := day.Date.Location()
		for _, e := range day.Events {
			data = append(data, []string{
				day.Key(),
				e.StartDate.In(loc).Format(time.Kitchen),
				e.EndDate.In(loc).Format(time.Kitchen),
				e.Name,
				string(e.EventType),
				e.Location,
			})
		}
	}

	var b bytes.Buffer
	writer := csv.NewWriter(&b)
	for _, row := range data {
		err := writer.Write(row)
		if err != nil {
			log.Errorf("Error writing to csv: %v", err)
			return "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		log.Errorf("Error writing to csv: %v", err)
		return "", err
	}

	return b.String(), nil
}

func countEvents(days []Day) int {
	n := 0
	for _, d := range days {
		n += len(d.Events)
	}
	return n
}
