package duel

const wheelSegments = 12

// draw sorteia uma rodada. Empate no dado é decidido por mais um cara ou coroa
// da mesma fonte, registrado em TieBreak.
func draw(rng RNG, g Game) RoundResult {
	res := RoundResult{Game: g}
	switch g {
	case GameDice:
		d := &Dice{}
		var l, r int
		for i := range d.Left {
			d.Left[i] = rng.IntN(6) + 1
			l += d.Left[i]
		}
		for i := range d.Right {
			d.Right[i] = rng.IntN(6) + 1
			r += d.Right[i]
		}
		switch {
		case l > r:
			res.Winner = Left
		case r > l:
			res.Winner = Right
		default:
			d.TieBreak = true
			res.Winner = flip(rng)
		}
		res.Dice = d

	case GameWheel:
		seg := rng.IntN(wheelSegments)
		res.Wheel = &seg
		if seg%2 == 0 {
			res.Winner = Left
		} else {
			res.Winner = Right
		}

	default:
		res.Winner = flip(rng)
		if res.Winner == Left {
			res.Coin = "HEADS"
		} else {
			res.Coin = "TAILS"
		}
	}
	return res
}

func flip(rng RNG) Side {
	if rng.IntN(2) == 0 {
		return Left
	}
	return Right
}
