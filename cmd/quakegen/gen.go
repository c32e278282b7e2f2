package main

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"
)

var header = []string{
	"time", "latitude", "longitude", "depth", "mag", "magType", "nst", "gap", "dmin", "rms",
	"net", "id", "updated", "place", "type", "horizontalError", "depthError", "magError",
	"magNst", "status", "locationSource", "magSource",
}

var (
	networks = []string{"ak", "ci", "hv", "nc", "nn", "us", "uw", "pr", "tx"}
	regions  = []string{
		"Alaska Peninsula", "Central California", "Island of Hawaii, Hawaii", "Nevada",
		"Puerto Rico region", "western Texas", "Kuril Islands", "Fiji region", "northern Chile",
		"Tonga", "southern Greece", "Sumatra, Indonesia", "Oklahoma", "Washington",
	}
	magTypes = []string{"ml", "md", "mb", "mww", "mwr"}
	types    = []string{"earthquake", "earthquake", "earthquake", "earthquake", "quarry blast", "explosion"}
)

// generator emits rows in time order. Revisions reuse an earlier id with a
// later updated time so consumers can exercise deduplication.
type generator struct {
	rng      *rand.Rand
	clock    time.Time
	seq      int
	emitted  [][]string
	dupRatio float64
	badRatio float64
}

func newGenerator(seed int64, start time.Time) *generator {
	return &generator{rng: rand.New(rand.NewSource(seed)), clock: start}
}

func (g *generator) next() []string {
	switch p := g.rng.Float64(); {
	case p < g.badRatio:
		return g.malformed()
	case p < g.badRatio+g.dupRatio && len(g.emitted) > 0:
		return g.revision()
	}
	row := g.event()
	g.emitted = append(g.emitted, row)
	if len(g.emitted) > 1000 {
		g.emitted = g.emitted[len(g.emitted)-1000:]
	}
	return row
}

func (g *generator) event() []string {
	g.seq++
	g.clock = g.clock.Add(time.Duration(g.rng.Intn(600)+1) * time.Second)
	net := networks[g.rng.Intn(len(networks))]
	mag := g.magnitude()
	depth := g.rng.ExpFloat64() * 25
	km := g.rng.Intn(150) + 1
	dirs := []string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}
	place := fmt.Sprintf("%d km %s of %s", km, dirs[g.rng.Intn(len(dirs))], regions[g.rng.Intn(len(regions))])
	status := "automatic"
	if g.rng.Intn(3) == 0 {
		status = "reviewed"
	}
	return []string{
		g.clock.Format("2006-01-02T15:04:05.000Z"),
		ftoa(g.rng.Float64()*180-90, 4),
		ftoa(g.rng.Float64()*360-180, 4),
		ftoa(depth, 2),
		ftoa(mag, 1),
		magTypes[g.rng.Intn(len(magTypes))],
		strconv.Itoa(g.rng.Intn(120)),
		ftoa(g.rng.Float64()*300, 0),
		ftoa(g.rng.Float64()*5, 3),
		ftoa(g.rng.Float64(), 2),
		net,
		fmt.Sprintf("%s%08d", net, g.seq),
		g.clock.Add(time.Duration(g.rng.Intn(3600)) * time.Second).Format("2006-01-02T15:04:05.000Z"),
		place,
		types[g.rng.Intn(len(types))],
		ftoa(g.rng.Float64()*10, 2),
		ftoa(g.rng.Float64()*5, 2),
		ftoa(g.rng.Float64()*0.3, 3),
		strconv.Itoa(g.rng.Intn(60)),
		status,
		net,
		net,
	}
}

// magnitude follows a rough Gutenberg-Richter falloff.
func (g *generator) magnitude() float64 {
	m := -0.5 + g.rng.ExpFloat64()*1.1
	if m > 9.1 {
		m = 9.1
	}
	return m
}

// revision re-issues a recent event with a later updated time, a refined
// magnitude and reviewed status.
func (g *generator) revision() []string {
	orig := g.emitted[g.rng.Intn(len(g.emitted))]
	row := append([]string(nil), orig...)
	updated, err := time.Parse("2006-01-02T15:04:05.000Z", orig[12])
	if err != nil {
		updated = g.clock
	}
	row[12] = updated.Add(time.Duration(g.rng.Intn(7200)+60) * time.Second).Format("2006-01-02T15:04:05.000Z")
	if m, err := strconv.ParseFloat(orig[4], 64); err == nil {
		row[4] = ftoa(m+g.rng.Float64()*0.4-0.2, 1)
	}
	row[19] = "reviewed"
	return row
}

// malformed returns a row that a strict reader must reject.
func (g *generator) malformed() []string {
	row := g.event()
	switch g.rng.Intn(4) {
	case 0:
		row[11] = ""
	case 1:
		row[0] = "not-a-time"
	case 2:
		row[1] = "123.4"
	default:
		row[4] = "strong"
	}
	return row
}

func ftoa(f float64, prec int) string { return strconv.FormatFloat(f, 'f', prec, 64) }
