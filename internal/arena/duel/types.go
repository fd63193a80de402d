package duel

type Side string

const (
	Left  Side = "left"
	Right Side = "right"
)

func (s Side) Valid() bool { return s == Left || s == Right }

func (s Side) Other() Side {
	if s == Left {
		return Right
	}
	return Left
}

func (s Side) idx() int {
	if s == Right {
		return 1
	}
	return 0
}

var sides = [2]Side{Left, Right}

type Game string

const (
	GameCoin  Game = "coin"
	GameDice  Game = "dice"
	GameWheel Game = "wheel"
)

type Rounds string

const (
	BestOf3 Rounds = "bo3"
	BestOf5 Rounds = "bo5"
	RaceTo3 Rounds = "race3"
	RaceTo5 Rounds = "race5"
)

// Target devolve o placar que encerra a partida; zero para modo desconhecido
func (r Rounds) Target() int {
	switch r {
	case BestOf3:
		return 2
	case BestOf5, RaceTo3:
		return 3
	case RaceTo5:
		return 5
	}
	return 0
}

// State é derivado de proposta/partida, nunca guardado
type State string

const (
	StateOpen        State = "OPEN"
	StateProposed    State = "PROPOSED"
	StateMatchActive State = "MATCH_ACTIVE"
	StateResolving   State = "RESOLVING"
	StateSettled     State = "SETTLED"
)

// Phase é a sub-fase de uma partida
type Phase string

const (
	PhaseStarting Phase = "starting" // janela de apostas de espectadores
	PhaseAct      Phase = "act"      // aguardando os dois jogadores
	PhaseRolling  Phase = "rolling"  // resultado sorteado, revelando
	PhaseFinished Phase = "finished" // liquidada, aguardando reset
)

type Settings struct {
	Game   Game   `json:"game"`
	Bet    int64  `json:"bet"`
	Rounds Rounds `json:"rounds"`
}

func DefaultSettings() Settings {
	return Settings{Game: GameCoin, Bet: 0, Rounds: BestOf3}
}

// Validate checa jogo e modo; aposta zero é aceita até a hora de apostar
func (s Settings) Validate() error {
	switch s.Game {
	case GameCoin, GameDice, GameWheel:
	default:
		return ErrInvalidSettings
	}
	if s.Rounds.Target() == 0 || s.Bet < 0 {
		return ErrInvalidSettings
	}
	return nil
}

type Proposal struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Game   Game   `json:"game"`
	Bet    int64  `json:"bet"`
	Rounds Rounds `json:"rounds"`
}

type Scores struct {
	Left  int `json:"left"`
	Right int `json:"right"`
}

func (s *Scores) add(side Side) {
	if side == Left {
		s.Left++
	} else {
		s.Right++
	}
}

func (s Scores) of(side Side) int {
	if side == Left {
		return s.Left
	}
	return s.Right
}

// RoundResult é o sorteio de uma rodada
type RoundResult struct {
	Round  int    `json:"round"`
	Game   Game   `json:"game"`
	Winner Side   `json:"winner"`
	Coin   string `json:"coin,omitempty"` // HEADS | TAILS
	Dice   *Dice  `json:"dice,omitempty"`
	Wheel  *int   `json:"wheel,omitempty"` // segmento 0..11
}

type Dice struct {
	Left     [3]int `json:"left"`
	Right    [3]int `json:"right"`
	TieBreak bool   `json:"tieBreak,omitempty"`
}

// Match só existe depois do escrow das duas apostas
type Match struct {
	ID      string
	Game    Game
	Rounds  Rounds
	Bet     int64
	Pot     int64
	Round   int
	Target  int
	Scores  Scores
	Phase   Phase
	Players [2]string // identidades esquerda/direita no início
	Acted   [2]bool
	Last    *RoundResult
	Winner  Side

	settled bool
}

type SpectatorBet struct {
	Identity string
	Side     Side
	Amount   int64
}

// View é o snapshot público da mesa. Valores de apostas de espectadores não entram.
type View struct {
	ID       string     `json:"id"`
	State    State      `json:"state"`
	Seats    SeatsView  `json:"seats"`
	Settings Settings   `json:"settings"`
	Locks    LocksView  `json:"locks"`
	Proposal *Proposal  `json:"proposal,omitempty"`
	Match    *MatchView `json:"match,omitempty"`
	Bettors  Scores     `json:"bettors"` // quantidade de apostas por lado
}

type SeatsView struct {
	Left  string `json:"left,omitempty"`
	Right string `json:"right,omitempty"`
}

type LocksView struct {
	Left  bool `json:"left"`
	Right bool `json:"right"`
}

type MatchView struct {
	ID     string       `json:"id"`
	Game   Game         `json:"game"`
	Rounds Rounds       `json:"rounds"`
	Bet    int64        `json:"bet"`
	Pot    int64        `json:"pot"`
	Round  int          `json:"round"`
	Target int          `json:"target"`
	Scores Scores       `json:"scores"`
	Phase  Phase        `json:"phase"`
	Acted  LocksView    `json:"acted"`
	Last   *RoundResult `json:"last,omitempty"`
	Winner Side         `json:"winner,omitempty"`
}

// Event é o aviso informativo enviado como duel_event
type Event struct {
	Kind    string       `json:"kind"` // proposal | declined | started | round | settled | aborted
	TableID string       `json:"tableId"`
	MatchID string       `json:"matchId,omitempty"`
	Result  *RoundResult `json:"result,omitempty"`
	Scores  *Scores      `json:"scores,omitempty"`
	Winner  string       `json:"winner,omitempty"`
	Reason  string       `json:"reason,omitempty"`
}
