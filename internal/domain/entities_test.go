package domain

import "testing"

func TestLevelForXP(t *testing.T) {
	cases := map[int]int{
		0:   1,
		99:  1,
		100: 2,
		250: 3,
		999: 10,
	}
	for xp, want := range cases {
		if got := LevelForXP(xp, 100); got != want {
			t.Fatalf("LevelForXP(%d): ожидали %d, получили %d", xp, want, got)
		}
	}
	if got := LevelForXP(-5, 100); got != 1 {
		t.Fatalf("отрицательный опыт должен давать уровень 1, получили %d", got)
	}
	if got := LevelForXP(300, 0); got != 4 {
		t.Fatalf("нулевой делитель должен заменяться на 100, получили уровень %d", got)
	}
}

func TestAddXP(t *testing.T) {
	u := &UserRecord{XP: 95, Level: 1}
	if !u.AddXP(10, 100) {
		t.Fatal("expected level up at 105 XP")
	}
	if u.Level != 2 {
		t.Fatalf("ожидали уровень 2, получили %d", u.Level)
	}
	if u.AddXP(10, 100) {
		t.Fatal("повторное начисление не должно поднимать уровень")
	}
}
