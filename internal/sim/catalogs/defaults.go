package catalogs

import "idlebakery.ai/internal/sim/bignum"

// StarterPastryID is the pastry every new or reset bakery owns at level 1.
const StarterPastryID = 1

// Default returns the built-in bakery catalog used when no pastries.json is
// present.
func Default() *Catalog {
	c, err := New(defaultPastries())
	if err != nil {
		panic("catalogs: built-in catalog invalid: " + err.Error())
	}
	return c
}

func n(m float64, e int) bignum.Number { return bignum.New(m, e) }

func defaultPastries() []PastryDef {
	return []PastryDef{
		{
			ID: 1, Name: "Bread Loaf", Image: "bread.png", Rank: 1, Level: 1,
			BaseBuildTimeMs: 1000, BaseRevenue: n(1, 0), BaseCost: n(1, 1), CostMultiplier: 1.15,
			Upgrades: []UpgradeDef{
				{ID: 101, Name: "Better Flour", Description: "Switch to higher quality flour, doubling bread loaf value.",
					Type: UpgradeSellMultiplier, Value: 2, Cost: n(1, 1), LevelRequirement: 2},
				{ID: 102, Name: "Golden Crust", Description: "A crispy golden crust makes loaves twice as valuable.",
					Type: UpgradeSellMultiplier, Value: 2, Cost: n(2, 1), LevelRequirement: 4},
				{ID: 103, Name: "Secret Family Recipe", Description: "Adds irresistible flavor, doubling bread loaf sell price.",
					Type: UpgradeSellMultiplier, Value: 2, Cost: n(3, 1), LevelRequirement: 6},
				{ID: 104, Name: "Conveyor Oven", Description: "Automated oven halves the baking time.",
					Type: UpgradeSpeedMultiplier, Value: 2, Cost: n(4, 1), LevelRequirement: 8},
				{ID: 105, Name: "Self-Slicing Bread Machine", Description: "Loaves bake and sell automatically.",
					Type: UpgradeAutomation, Value: 1, Cost: n(5, 1), LevelRequirement: 10},
			},
		},
		{
			ID: 2, Name: "Croissant", Image: "croissant.png", Rank: 2,
			BaseBuildTimeMs: 3000, BaseRevenue: n(8, 0), BaseCost: n(1, 2), CostMultiplier: 1.16,
			Upgrades: []UpgradeDef{
				{ID: 201, Name: "Cultured Butter", Description: "Richer layers double croissant value.",
					Type: UpgradeSellMultiplier, Value: 2, Cost: n(5, 2), LevelRequirement: 5},
				{ID: 202, Name: "Laminating Machine", Description: "Folding dough by machine doubles baking speed.",
					Type: UpgradeSpeedMultiplier, Value: 2, Cost: n(2, 3), LevelRequirement: 10},
				{ID: 203, Name: "Almond Filling", Description: "Filled croissants sell for twice as much.",
					Type: UpgradeSellMultiplier, Value: 2, Cost: n(8, 3), LevelRequirement: 15},
				{ID: 204, Name: "Pastry Robot", Description: "Croissants bake and sell automatically.",
					Type: UpgradeAutomation, Value: 1, Cost: n(3, 4), LevelRequirement: 20},
				{ID: 205, Name: "Parisian Reputation", Description: "Everything in the shop sells for 50% more.",
					Type: UpgradeGlobalSellMultiplier, Value: 1.5, Cost: n(1, 5), LevelRequirement: 25},
			},
		},
		{
			ID: 3, Name: "Cupcake", Image: "cupcake.png", Rank: 3,
			BaseBuildTimeMs: 6000, BaseRevenue: n(5, 1), BaseCost: n(2, 3), CostMultiplier: 1.17,
			Upgrades: []UpgradeDef{
				{ID: 301, Name: "Buttercream Swirl", Description: "Fancy frosting doubles cupcake value.",
					Type: UpgradeSellMultiplier, Value: 2, Cost: n(1, 4), LevelRequirement: 5},
				{ID: 302, Name: "Convection Fans", Description: "Even heat bakes cupcakes twice as fast.",
					Type: UpgradeSpeedMultiplier, Value: 2, Cost: n(5, 4), LevelRequirement: 10},
				{ID: 303, Name: "Sprinkle Cannon", Description: "Sprinkles everywhere; cupcakes sell for triple.",
					Type: UpgradeSellMultiplier, Value: 3, Cost: n(2, 5), LevelRequirement: 15},
				{ID: 304, Name: "Frosting Assembly Line", Description: "Cupcakes bake and sell automatically.",
					Type: UpgradeAutomation, Value: 1, Cost: n(8, 5), LevelRequirement: 20},
				{ID: 305, Name: "Night Shift", Description: "Every oven in the shop runs 25% faster.",
					Type: UpgradeGlobalSpeedMultiplier, Value: 1.25, Cost: n(3, 6), LevelRequirement: 25},
			},
		},
		{
			ID: 4, Name: "Cheesecake", Image: "cheesecake.png", Rank: 4,
			BaseBuildTimeMs: 12000, BaseRevenue: n(4, 2), BaseCost: n(5, 4), CostMultiplier: 1.18,
			Upgrades: []UpgradeDef{
				{ID: 401, Name: "Graham Crust", Description: "A proper crust doubles cheesecake value.",
					Type: UpgradeSellMultiplier, Value: 2, Cost: n(2, 5), LevelRequirement: 5},
				{ID: 402, Name: "Water Bath Ovens", Description: "No more cracks; cheesecakes bake twice as fast.",
					Type: UpgradeSpeedMultiplier, Value: 2, Cost: n(1, 6), LevelRequirement: 10},
				{ID: 403, Name: "Berry Compote", Description: "Fruit topping doubles cheesecake value.",
					Type: UpgradeSellMultiplier, Value: 2, Cost: n(5, 6), LevelRequirement: 15},
				{ID: 404, Name: "Chilled Conveyor", Description: "Cheesecakes bake and sell automatically.",
					Type: UpgradeAutomation, Value: 1, Cost: n(2, 7), LevelRequirement: 20},
				{ID: 405, Name: "Food Critic Review", Description: "Everything in the shop sells for double.",
					Type: UpgradeGlobalSellMultiplier, Value: 2, Cost: n(1, 8), LevelRequirement: 25},
			},
		},
		{
			ID: 5, Name: "Wedding Cake", Image: "wedding_cake.png", Rank: 5,
			BaseBuildTimeMs: 30000, BaseRevenue: n(5, 3), BaseCost: n(1, 6), CostMultiplier: 1.2,
			Upgrades: []UpgradeDef{
				{ID: 501, Name: "Sugar Flowers", Description: "Handmade decorations double wedding cake value.",
					Type: UpgradeSellMultiplier, Value: 2, Cost: n(5, 6), LevelRequirement: 5},
				{ID: 502, Name: "Tier Stacking Jig", Description: "Stacking tiers goes twice as fast.",
					Type: UpgradeSpeedMultiplier, Value: 2, Cost: n(3, 7), LevelRequirement: 10},
				{ID: 503, Name: "Celebrity Clients", Description: "Wedding cakes sell for triple.",
					Type: UpgradeSellMultiplier, Value: 3, Cost: n(1, 8), LevelRequirement: 15},
				{ID: 504, Name: "Event Planner Contract", Description: "Wedding cakes bake and sell automatically.",
					Type: UpgradeAutomation, Value: 1, Cost: n(6, 8), LevelRequirement: 20},
				{ID: 505, Name: "Bakery Empire", Description: "Every oven in the shop runs 50% faster.",
					Type: UpgradeGlobalSpeedMultiplier, Value: 1.5, Cost: n(2, 9), LevelRequirement: 25},
			},
		},
	}
}
