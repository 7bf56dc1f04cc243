package progression

// Level describes one entry of the game level table. The table is fixed,
// ordered by ascending MinPoints and gapless from zero.
type Level struct {
	Name               string  `json:"name"`
	MinPoints          float64 `json:"min_points"`
	FriendBonus        float64 `json:"friend_bonus"`
	FriendBonusPremium float64 `json:"friend_bonus_premium"`
}

var Levels = []Level{
	{Name: "USDT Novice", MinPoints: 0, FriendBonus: 5, FriendBonusPremium: 5},
	{Name: "USDT Trader", MinPoints: 50, FriendBonus: 5, FriendBonusPremium: 5},
	{Name: "USDT Analyst", MinPoints: 250, FriendBonus: 5, FriendBonusPremium: 5},
	{Name: "USDT Strategist", MinPoints: 500, FriendBonus: 5, FriendBonusPremium: 5},
	{Name: "USDT Portfolio Manager", MinPoints: 1000, FriendBonus: 5, FriendBonusPremium: 5},
	{Name: "USDT Investment Director", MinPoints: 2000, FriendBonus: 5, FriendBonusPremium: 5},
	{Name: "USDT Wealth Manager", MinPoints: 5000, FriendBonus: 5, FriendBonusPremium: 5},
	{Name: "USDT Financial Expert", MinPoints: 6000, FriendBonus: 5, FriendBonusPremium: 5},
	{Name: "USDT Master Trader", MinPoints: 7000, FriendBonus: 5, FriendBonusPremium: 5},
}

// DailyRewards holds the daily bonus amounts indexed by consecutive-day streak.
var DailyRewards = []float64{
	500,
	1000,
	2500,
	5000,
	15000,
	25000,
	100000,
	500000,
	1000000,
	5000000,
}
