package protocol

import "errors"

// Error kinds surfaced by the dealer and the game engine. Callers match them
// with errors.Is; the wrapping message carries the detail.
var (
	ErrInvalidKey           = errors.New("invalid key")
	ErrSessionNotFound      = errors.New("hand does not exist")
	ErrGameNotFound         = errors.New("game does not exist")
	ErrDuplicateParticipant = errors.New("player already joined")
	ErrSessionFull          = errors.New("hand is full")
	ErrSeatTaken            = errors.New("seat taken")
	ErrInvalidSeat          = errors.New("invalid seat")
	ErrInsufficientChips    = errors.New("insufficient chips for buy-in")
	ErrInvalidBlinds        = errors.New("big blind must be twice the small blind")
	ErrInvalidPlayerCount   = errors.New("invalid number of players")
	ErrOutOfTurn            = errors.New("not your turn")
	ErrIllegalAction        = errors.New("illegal action")
	ErrEntropyNotReady      = errors.New("entropy block not mined yet")
	ErrEntropyExpired       = errors.New("entropy block hash no longer available")
	ErrEntropyLocked        = errors.New("entropy already locked")
	ErrSessionLocked        = errors.New("hand no longer accepts commitments")
	ErrSessionClosed        = errors.New("hand is closed")
	ErrNotParticipant       = errors.New("not a participant")
	ErrAlreadyRevealed      = errors.New("hand already revealed")
	ErrBoardMismatch        = errors.New("board cards do not match")
	ErrInvalidCards         = errors.New("invalid street cards")
)
