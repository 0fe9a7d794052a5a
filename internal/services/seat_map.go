package services

import (
	"sort"
	"strconv"
	"strings"

	"github.com/gogobus/booking-gateway/internal/models"
	"github.com/gogobus/booking-gateway/pkg/busapi"
	"github.com/sirupsen/logrus"
)

const seatsPerSynthesizedRow = 4

// BuildSeatMap turns a raw trip record (bus.seats matrix plus occupied and
// available seat lists) into one normalized seat per physical seat.
func BuildSeatMap(tripID string, raw busapi.Record, logger *logrus.Logger) models.SeatMap {
	bus := raw.Object("bus")
	if bus == nil {
		bus = busapi.Record{}
	}

	occupiedList := uniqueStrings(raw.Strings("occupied_seats"))
	availableList := uniqueStrings(raw.Strings("available_seats"))
	occupied := toSet(occupiedList)
	available := toSet(availableList)

	statusOf := func(id string) models.SeatStatus {
		if occupied[id] {
			return models.SeatStatusOccupied
		}
		if len(available) > 0 {
			if available[id] {
				return models.SeatStatusAvailable
			}
			return models.SeatStatusBlocked
		}
		return models.SeatStatusAvailable
	}

	var (
		seats      []models.Seat
		index      = map[string]int{}
		duplicates []string
		reported   = map[string]bool{}
	)

	matrix := seatMatrix(bus["seats"])
	for _, rowKey := range sortedRowKeys(matrix) {
		row := rowNumber(rowKey)
		for i, item := range matrix[rowKey] {
			rec, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			seatRec := busapi.Record(rec)

			id := firstTruthy(seatRec, "number", "seat_number", "id")
			if id == "" {
				id = rowKey + "-" + strconv.Itoa(i+1)
			}

			column := i + 1
			if colValue := firstTruthyValue(seatRec, "column", "position"); colValue != nil {
				column = positiveInt(colValue)
			}

			seat := models.Seat{
				ID:     id,
				Number: id,
				Row:    row,
				Column: column,
				Type:   models.ParseSeatType(seatRec.String("type")),
				Status: statusOf(id),
				Price:  seatRec.Float("price_modifier"),
			}

			if at, exists := index[id]; exists {
				seats[at] = seat
				if !reported[id] {
					reported[id] = true
					duplicates = append(duplicates, id)
				}
				continue
			}
			index[id] = len(seats)
			seats = append(seats, seat)
		}
	}

	if len(seats) == 0 && (len(availableList) > 0 || len(occupiedList) > 0) {
		seats = synthesizeSeats(append(append([]string{}, availableList...), occupiedList...), occupied)
	}

	if len(duplicates) > 0 && logger != nil {
		logger.WithFields(logrus.Fields{
			"trip_id":  tripID,
			"seat_ids": duplicates,
		}).Warn("Seat matrix lists the same seat more than once, keeping the last occurrence")
	}

	seatMap := models.SeatMap{
		TripID:           tripID,
		Rows:             0,
		Columns:          seatsPerSynthesizedRow,
		Seats:            seats,
		Layout:           layoutConfig(bus["layout_config"]),
		DuplicateSeatIDs: duplicates,
	}
	if seatMap.Seats == nil {
		seatMap.Seats = []models.Seat{}
	}
	if len(seats) > 0 {
		seatMap.Columns = 0
		for _, seat := range seats {
			if seat.Row > seatMap.Rows {
				seatMap.Rows = seat.Row
			}
			if seat.Column > seatMap.Columns {
				seatMap.Columns = seat.Column
			}
		}
	}
	return seatMap
}

// synthesizeSeats lays seats out in reading order, four per row
func synthesizeSeats(ids []string, occupied map[string]bool) []models.Seat {
	ids = uniqueStrings(ids)
	seats := make([]models.Seat, 0, len(ids))
	for i, id := range ids {
		n := i + 1
		column := n % seatsPerSynthesizedRow
		if column == 0 {
			column = seatsPerSynthesizedRow
		}
		status := models.SeatStatusAvailable
		if occupied[id] {
			status = models.SeatStatusOccupied
		}
		seats = append(seats, models.Seat{
			ID:     id,
			Number: id,
			Row:    (n + seatsPerSynthesizedRow - 1) / seatsPerSynthesizedRow,
			Column: column,
			Type:   models.SeatTypeStandard,
			Status: status,
		})
	}
	return seats
}

// seatMatrix accepts a row-key object or an array of rows
func seatMatrix(v interface{}) map[string][]interface{} {
	matrix := map[string][]interface{}{}
	switch rows := v.(type) {
	case map[string]interface{}:
		for key, row := range rows {
			if list, ok := row.([]interface{}); ok {
				matrix[key] = list
			}
		}
	case []interface{}:
		for i, row := range rows {
			if list, ok := row.([]interface{}); ok {
				matrix[strconv.Itoa(i)] = list
			}
		}
	}
	return matrix
}

// sortedRowKeys orders numeric keys ascending first, then the rest lexically
func sortedRowKeys(matrix map[string][]interface{}) []string {
	keys := make([]string, 0, len(matrix))
	for key := range matrix {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, aErr := strconv.ParseFloat(keys[i], 64)
		b, bErr := strconv.ParseFloat(keys[j], 64)
		switch {
		case aErr == nil && bErr == nil:
			if a != b {
				return a < b
			}
			return keys[i] < keys[j]
		case aErr == nil:
			return true
		case bErr == nil:
			return false
		}
		return keys[i] < keys[j]
	})
	return keys
}

func rowNumber(rowKey string) int {
	n, err := strconv.Atoi(strings.TrimSpace(rowKey))
	if err != nil || n <= 0 {
		return 1
	}
	return n
}

func positiveInt(v interface{}) int {
	n, err := strconv.Atoi(strings.TrimSpace(busapi.Stringify(v)))
	if err != nil || n <= 0 {
		if f, ferr := strconv.ParseFloat(busapi.Stringify(v), 64); ferr == nil && f >= 1 {
			return int(f)
		}
		return 1
	}
	return n
}

func firstTruthyValue(rec busapi.Record, keys ...string) interface{} {
	for _, key := range keys {
		if busapi.Truthy(rec[key]) {
			return rec[key]
		}
	}
	return nil
}

func firstTruthy(rec busapi.Record, keys ...string) string {
	return busapi.Stringify(firstTruthyValue(rec, keys...))
}

func layoutConfig(v interface{}) [][]string {
	layout := [][]string{}
	rows, ok := v.([]interface{})
	if !ok {
		return layout
	}
	for _, row := range rows {
		cells, ok := row.([]interface{})
		if !ok {
			continue
		}
		line := make([]string, 0, len(cells))
		for _, cell := range cells {
			line = append(line, busapi.Stringify(cell))
		}
		layout = append(layout, line)
	}
	return layout
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
