package main

import (
	"math"
	"strings"
)

// Answer phases on the wire.
const (
	AnswerName = "name"
	AnswerMap  = "map"
)

const (
	nameGuessPoints = 100
	mapDecayKm      = 500 // full linear decay distance; raw score /5 caps at 100
)

// normalizeAnswer lowercases and collapses whitespace, so
// "  Grand  theft AUTO v " matches "grand theft auto v".
func normalizeAnswer(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// haversineKm is the great-circle distance between two coordinates.
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusKm = 6371.0

	rad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

// mapScore decays linearly with distance: full marks on the exact spot,
// nothing beyond mapDecayKm kilometers.
func mapScore(distanceKm float64) int {
	raw := mapDecayKm - distanceKm
	if raw < 0 {
		raw = 0
	}
	return int(raw) / 5
}

// submitAnswer handles "game answer". The guess is validated server-side
// against the room's snapshot; the client never reports its own
// correctness. Stale rounds and repeat submissions are dropped quietly:
// clients retry on flaky connections and must not double-score.
func (s *Server) submitAnswer(d gameAnswerData) error {
	room, ok := s.rooms.get(d.RoomCode)
	if !ok {
		return ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.Status != StatusPlaying {
		return ErrInvalidTransition
	}
	if d.Round != room.Round {
		s.log.Debug().
			Str("room", d.RoomCode).
			Str("user", d.UserID).
			Int("round", d.Round).
			Msg("stale answer dropped")
		return nil
	}
	m, ok := room.roster[d.UserID]
	if !ok {
		return ErrUserNotFound
	}

	cur := room.rounds[room.Round]
	room.lastActive = s.clock.Now()

	switch d.Mode {
	case AnswerName:
		if room.Mode == ModeMap {
			return nil
		}
		if m.progress.nameDone {
			return nil
		}
		m.progress.nameDone = true

		guess := normalizeAnswer(d.Guess)
		for _, want := range cur.Answers {
			if normalizeAnswer(want) == guess {
				m.progress.nameCorrect = true
				m.Points += nameGuessPoints
				s.postSystemLocked(room, m.Name+" guessed the game!", KindGame)
				break
			}
		}

	case AnswerMap:
		if room.Mode == ModeClassic && !m.progress.nameCorrect {
			// Map phase stays locked until the name is right.
			return nil
		}
		if m.progress.mapDone {
			return nil
		}
		m.progress.mapDone = true
		m.Points += mapScore(haversineKm(d.Lat, d.Lng, cur.Lat, cur.Lng))

	default:
		return nil
	}

	s.gw.roomCast(room.Code, evPlayerUpdate, rosterLocked(room))

	if room.allAnsweredLocked() {
		return s.advanceRoundLocked(room, room.Round, triggerAllAnswered, "")
	}

	return nil
}
