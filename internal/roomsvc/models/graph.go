package models

// RoomGraph is the full state of one room as loaded by the repository:
// the room row, its players ordered by user uid, and its rounds ordered
// by number. Every state machine operation works on a freshly loaded
// graph under the room's advisory lock.
type RoomGraph struct {
	Room    *Room
	Players []*Player
	Rounds  []*Round
}

// CurrentRound returns the latest round or nil before the game starts.
func (g *RoomGraph) CurrentRound() *Round {
	if len(g.Rounds) == 0 {
		return nil
	}
	return g.Rounds[len(g.Rounds)-1]
}

func (g *RoomGraph) PlayerByUID(userUID string) *Player {
	for _, p := range g.Players {
		if p.UserUID == userUID {
			return p
		}
	}
	return nil
}

func (g *RoomGraph) PlayerByID(id int64) *Player {
	for _, p := range g.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Suggester resolves the round's suggester within the loaded graph, nil
// when the suggester has left the room.
func (g *RoomGraph) Suggester(r *Round) *Player {
	if !r.SuggesterID.Valid {
		return nil
	}
	return g.PlayerByID(r.SuggesterID.Int64)
}

// SuggesterForRound picks the suggester for a round number by rotating
// over the players in their stable user uid order.
func (g *RoomGraph) SuggesterForRound(number int) *Player {
	if len(g.Players) == 0 {
		return nil
	}
	return g.Players[(number-1)%len(g.Players)]
}

// NicknameTaken reports whether the nickname is already used in the room.
func (g *RoomGraph) NicknameTaken(nickname string) bool {
	for _, p := range g.Players {
		if p.Nickname == nickname {
			return true
		}
	}
	return false
}
