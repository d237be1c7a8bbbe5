package commands

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"neobot/internal/domain"
)

const (
	leaderboardDefault = 10
	leaderboardMax     = 20
)

var medals = []string{"🥇", "🥈", "🥉"}

// Leaderboard — топ пользователей по опыту.
func Leaderboard() *domain.Command {
	return &domain.Command{
		Name:        "leaderboard",
		Description: "Топ пользователей по опыту",
		Usage:       "leaderboard [число]",
		Category:    categoryGeneral,
		Role:        domain.RoleEveryone,
		Cooldown:    10,
		Execute: func(ctx context.Context, cc *domain.CommandContext) error {
			limit := leaderboardDefault
			if len(cc.Args) > 0 {
				v, err := strconv.Atoi(cc.Args[0])
				if err != nil || v < 1 || v > leaderboardMax {
					return reply(ctx, cc, fmt.Sprintf("Укажите число от 1 до %d.", leaderboardMax))
				}
				limit = v
			}

			top := TopUsers(cc.State, limit)
			if len(top) == 0 {
				return reply(ctx, cc, "Пока пусто — напишите что-нибудь, чтобы заработать опыт!")
			}

			var b strings.Builder
			b.WriteString("🏆 Таблица лидеров\n")
			for i, u := range top {
				marker := fmt.Sprintf("%d.", i+1)
				if i < len(medals) {
					marker = medals[i]
				}
				name := u.Name
				if name == "" {
					name = u.UID
				}
				fmt.Fprintf(&b, "%s %s — уровень %d, %d XP\n", marker, name, u.Level, u.XP)
			}
			return reply(ctx, cc, strings.TrimRight(b.String(), "\n"))
		},
	}
}

// TopUsers возвращает limit пользователей по убыванию опыта.
func TopUsers(st *domain.BotState, limit int) []domain.UserRecord {
	var all []domain.UserRecord
	st.ForEachUser(func(u *domain.UserRecord) {
		all = append(all, *u)
	})
	sort.Slice(all, func(i, j int) bool {
		if all[i].XP != all[j].XP {
			return all[i].XP > all[j].XP
		}
		return all[i].UID < all[j].UID
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all
}
