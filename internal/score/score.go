package score

// Category identifies one of the thirteen scorecard slots.
type Category string

const (
	Ones   Category = "ones"
	Twos   Category = "twos"
	Threes Category = "threes"
	Fours  Category = "fours"
	Fives  Category = "fives"
	Sixes  Category = "sixes"

	ThreeOfAKind  Category = "threeOfAKind"
	FourOfAKind   Category = "fourOfAKind"
	FullHouse     Category = "fullHouse"
	SmallStraight Category = "smallStraight"
	LargeStraight Category = "largeStraight"
	Dicee         Category = "dicee"
	Chance        Category = "chance"
)

// Categories lists every slot in canonical order. The order matters: the
// AFK auto-score picks the first open slot from this list.
var Categories = []Category{
	Ones, Twos, Threes, Fours, Fives, Sixes,
	ThreeOfAKind, FourOfAKind, FullHouse,
	SmallStraight, LargeStraight, Dicee, Chance,
}

const (
	FullHouseScore     = 25
	SmallStraightScore = 30
	LargeStraightScore = 40
	DiceeScore         = 50
	DiceeBonusScore    = 100

	UpperBonusThreshold = 63
	UpperBonusScore     = 35
)

// upperFace maps the six upper-section categories to their die face.
var upperFace = map[Category]int{
	Ones: 1, Twos: 2, Threes: 3, Fours: 4, Fives: 5, Sixes: 6,
}

// Valid reports whether c names a real scorecard slot.
func Valid(c Category) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// IsUpper reports whether c is an upper-section category (ones through sixes).
func IsUpper(c Category) bool {
	_, ok := upperFace[c]
	return ok
}

// Score computes the points the given dice earn in the given category.
// It is a pure function of its inputs.
func Score(dice [5]int, c Category) int {
	counts := faceCounts(dice)

	if face, ok := upperFace[c]; ok {
		return counts[face] * face
	}

	switch c {
	case ThreeOfAKind:
		if hasOfAKind(counts, 3) {
			return sum(dice)
		}
		return 0
	case FourOfAKind:
		if hasOfAKind(counts, 4) {
			return sum(dice)
		}
		return 0
	case FullHouse:
		if isFullHouse(counts) {
			return FullHouseScore
		}
		return 0
	case SmallStraight:
		if hasRun(counts, 4) {
			return SmallStraightScore
		}
		return 0
	case LargeStraight:
		if hasRun(counts, 5) {
			return LargeStraightScore
		}
		return 0
	case Dicee:
		if IsFiveOfAKind(dice) {
			return DiceeScore
		}
		return 0
	case Chance:
		return sum(dice)
	}
	return 0
}

// IsFiveOfAKind reports whether all five dice show the same face.
func IsFiveOfAKind(dice [5]int) bool {
	for _, d := range dice[1:] {
		if d != dice[0] {
			return false
		}
	}
	return true
}

func faceCounts(dice [5]int) [7]int {
	var counts [7]int
	for _, d := range dice {
		if d >= 1 && d <= 6 {
			counts[d]++
		}
	}
	return counts
}

func sum(dice [5]int) int {
	total := 0
	for _, d := range dice {
		total += d
	}
	return total
}

func hasOfAKind(counts [7]int, n int) bool {
	for face := 1; face <= 6; face++ {
		if counts[face] >= n {
			return true
		}
	}
	return false
}

// isFullHouse requires a strict 3+2 split; five of a kind does not qualify.
func isFullHouse(counts [7]int) bool {
	hasThree, hasPair := false, false
	for face := 1; face <= 6; face++ {
		switch counts[face] {
		case 3:
			hasThree = true
		case 2:
			hasPair = true
		}
	}
	return hasThree && hasPair
}

func hasRun(counts [7]int, length int) bool {
	run := 0
	for face := 1; face <= 6; face++ {
		if counts[face] > 0 {
			run++
			if run >= length {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}
