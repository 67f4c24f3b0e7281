// Package game runs Texas Hold'em tables on top of a commit-reveal dealer.
//
// The main type is GameEngine. It holds no cards: every player's hole cards
// and the board are derived from a block hash captured after all players
// have committed, and each player's secret. Cards only become visible to
// the engine when a player reveals at showdown.
//
// # Basic Usage
//
// Open a table, seat players, and deal:
//
//	id, _ := engine.CreateGame(ctx, game.GameParams{MaxPlayers: 6, SmallBlind: 1, BigBlind: 2})
//	_ = engine.JoinGame(ctx, id, "alice", 0, protocol.Commit(aliceSecret))
//	_ = engine.JoinGame(ctx, id, "bob", 1, protocol.Commit(bobSecret))
//	_ = engine.DealHand(ctx, id)
//
// Betting proceeds through PlayerAction. Streets advance automatically once
// a round is complete. At showdown every player still in the hand calls
// RevealHand with their secret and the public key for their next hand; the
// last reveal settles the pots.
//
// # Atomicity
//
// Every operation loads a copy of the game, mutates it, checks chip
// conservation and stores it. Events are published only after the store
// accepts the new state, so a failed operation leaves no trace.
//
// # Chips
//
// Buy-ins are pulled from the ledger into the escrow account. Pots are paid
// from escrow straight back to winners' ledger accounts, so for every game
//
//	Pot + sum(stacks) + PaidOut == BuyIns
//
// TopUp refills a stack to the table buy-in between hands.
package game
