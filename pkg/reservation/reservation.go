package reservation

import (
	"strings"
	"time"
)

// MaxTeamMembers bounds the members a creator can add to a reservation.
const MaxTeamMembers = 10

type Theme string

const (
	DungeonsAndDragons   Theme = "DUNGEONS_AND_DRAGONS"
	HowToTrainYourDragon Theme = "HOW_TO_TRAIN_YOUR_DRAGON"
	DarkFairy            Theme = "DARK_FAIRY"
)

type ThemeInfo struct {
	Theme Theme
	Label string
	Room  string
}

// Themes lists every themed room, each in its own physical room.
var Themes = []ThemeInfo{
	{DungeonsAndDragons, "Dungeons and Dragons", "ROOM_2324"},
	{HowToTrainYourDragon, "How to Train Your Dragon", "ROOM_2326"},
	{DarkFairy, "Dark Fairy", "ROOM_2328"},
}

func (t Theme) Valid() bool {
	for _, info := range Themes {
		if info.Theme == t {
			return true
		}
	}
	return false
}

// TimeSlot is a three hour block, named DAY_START_END.
type TimeSlot string

var TimeSlots = []TimeSlot{
	"FRI_8_11PM",
	"FRI_11PM_2AM",
	"SAT_2_5AM",
	"SAT_5_8AM",
	"SAT_8_11AM",
	"SAT_11AM_2PM",
	"SAT_2_5PM",
	"SAT_5_8PM",
	"SAT_8_11PM",
	"SAT_11PM_2AM",
	"SUN_2_5AM",
	"SUN_5_8AM",
}

func (s TimeSlot) Valid() bool {
	for _, known := range TimeSlots {
		if s == known {
			return true
		}
	}
	return false
}

var dayLabels = map[string]string{"FRI": "Fri", "SAT": "Sat", "SUN": "Sun"}

// Label renders FRI_11PM_2AM as "Fri: 11PM–2 AM".
func (s TimeSlot) Label() string {
	parts := strings.SplitN(string(s), "_", 3)
	if len(parts) != 3 {
		return string(s)
	}
	end := parts[2]
	if len(end) > 2 {
		end = end[:len(end)-2] + " " + end[len(end)-2:]
	}
	return dayLabels[parts[0]] + ": " + parts[1] + "–" + end
}

// Combo is one bookable theme and time slot pair.
type Combo struct {
	Theme    Theme
	TimeSlot TimeSlot
}

type Reservation struct {
	Id       int
	UserId   int
	TeamName string
	// usernames, the creator first
	Members   []string
	Theme     Theme
	TimeSlot  TimeSlot
	CreatedAt time.Time
}

func (r Reservation) Combo() Combo {
	return Combo{Theme: r.Theme, TimeSlot: r.TimeSlot}
}
