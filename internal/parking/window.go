package parking

import (
	"math"
	"time"
)

// WindowOccurrence is one concrete calendar instance of a rule window.
type WindowOccurrence struct {
	WindowIndex int
	Start       time.Time
	End         time.Time
}

// Instantiate returns every occurrence of the rule's windows that overlaps
// [start, end]. Days are walked in the calculator's location from the day
// before start to the day after end so overnight windows touching either
// edge are included. An overnight window belongs to the day it starts on.
func (c *Calculator) Instantiate(rule PricingRule, start, end time.Time) []WindowOccurrence {
	start, end = start.In(c.loc), end.In(c.loc)

	var out []WindowOccurrence
	last := startOfDay(end).AddDate(0, 0, 1)
	for day := startOfDay(start).AddDate(0, 0, -1); !day.After(last); day = day.AddDate(0, 0, 1) {
		if !rule.appliesOn(ISOWeekday(day)) {
			continue
		}
		for i, w := range rule.Windows {
			ws := atMinute(day, w.StartMinute)
			endDay := day
			if w.Overnight() {
				endDay = day.AddDate(0, 0, 1)
			}
			we := atMinute(endDay, w.EndMinute)
			if overlapMinutes(ws, we, start, end) > 0 {
				out = append(out, WindowOccurrence{WindowIndex: i, Start: ws, End: we})
			}
		}
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// atMinute returns the wall-clock instant minute minutes after midnight of
// day. Minute 1440 normalises to the next midnight.
func atMinute(day time.Time, minute int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, minute/60, minute%60, 0, 0, day.Location())
}

// overlapMinutes is the overlap of [aStart, aEnd] and [bStart, bEnd] rounded
// to whole minutes.
func overlapMinutes(aStart, aEnd, bStart, bEnd time.Time) int {
	s := later(aStart, bStart)
	e := earlier(aEnd, bEnd)
	if !e.After(s) {
		return 0
	}
	return int(math.Round(e.Sub(s).Minutes()))
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlier(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
