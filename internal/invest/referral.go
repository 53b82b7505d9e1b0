package invest

import "context"

func (s *Service) DirectInvitees(ctx context.Context, userID string) ([]Member, error) {
	return s.store.DirectInvitees(ctx, userID)
}

// Team walks the invitation graph three levels down. Level N+1 is the union
// of the direct invitees of every level N member.
func (s *Service) Team(ctx context.Context, userID string) (Team, error) {
	var levels [MaxReferralDepth]TeamLevel
	frontier := []string{userID}
	for depth := 0; depth < MaxReferralDepth; depth++ {
		members := []Member{}
		for _, id := range frontier {
			direct, err := s.store.DirectInvitees(ctx, id)
			if err != nil {
				return Team{}, err
			}
			members = append(members, direct...)
		}
		earned, err := s.store.CommissionTotal(ctx, userID, depth+1)
		if err != nil {
			return Team{}, err
		}
		levels[depth] = TeamLevel{Count: len(members), TotalEarned: earned, Members: members}

		frontier = frontier[:0]
		for _, m := range members {
			frontier = append(frontier, m.ID)
		}
	}
	return Team{Level1: levels[0], Level2: levels[1], Level3: levels[2]}, nil
}
