package api

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	errorsmod "cosmossdk.io/errors"
	"github.com/gorilla/mux"

	"weighted-oracle/internal/domain"
	"weighted-oracle/internal/oracle"
	"weighted-oracle/internal/token"
)

// Mutating operations accepted by POST /oracles/{address}/{op}.
const (
	OpSubmit            = "submit"
	OpRead              = "read"
	OpReadLatest        = "readLatest"
	OpDeposit           = "deposit"
	OpWithdraw          = "withdraw"
	OpFund              = "fund"
	OpVoteBlacklist     = "voteBlacklist"
	OpVoteWhitelist     = "voteWhitelist"
	OpTransferOwnership = "transferOwnership"
	OpRenounceOwnership = "renounceOwnership"
	OpPause             = "pause"
	OpUnpause           = "unpause"
)

func (s *Server) health(w http.ResponseWriter, _ *http.Request) error {
	return WriteJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) error {
	resp := StatusResponse{
		Factory:       s.registry.Factory(),
		Oracles:       len(s.registry.AllOracles()),
		Tokens:        len(s.registry.Bank().Ledgers()),
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}
	if s.hub != nil {
		resp.WSClients = s.hub.ClientCount()
	}
	return WriteJSON(w, resp)
}

func (s *Server) listTokens(w http.ResponseWriter, _ *http.Request) error {
	ledgers := s.registry.Bank().Ledgers()
	out := make([]TokenView, 0, len(ledgers))
	for _, l := range ledgers {
		out = append(out, TokenView{Address: l.Address(), Symbol: l.Symbol(), TotalSupply: l.TotalSupply()})
	}
	return WriteJSON(w, out)
}

func (s *Server) balance(w http.ResponseWriter, r *http.Request) error {
	l, err := s.ledger(mux.Vars(r)["token"])
	if err != nil {
		return err
	}
	owner, err := pathAddress(r, "owner")
	if err != nil {
		return err
	}
	return WriteJSON(w, BalanceResponse{
		Token:   l.Address(),
		Symbol:  l.Symbol(),
		Owner:   owner,
		Balance: l.BalanceOf(owner),
	})
}

func (s *Server) approve(w http.ResponseWriter, r *http.Request) error {
	l, err := s.ledger(mux.Vars(r)["token"])
	if err != nil {
		return err
	}
	var req ApproveRequest
	if err := decode(r, &req); err != nil {
		return err
	}
	if _, err := domain.ParseAddress(string(req.Spender)); err != nil {
		return err
	}
	if err := l.Approve(Signer(r.Context()), req.Spender, req.Amount); err != nil {
		return err
	}
	return WriteJSON(w, OKResponse{OK: true})
}

func (s *Server) listOracles(w http.ResponseWriter, _ *http.Request) error {
	return WriteJSON(w, s.registry.AllOracles())
}

func (s *Server) createOracle(w http.ResponseWriter, r *http.Request) error {
	var req CreateOracleRequest
	if err := decode(r, &req); err != nil {
		return err
	}
	info, err := s.registry.CreateOracle(detach(r), Signer(r.Context()), req.Config)
	if err != nil {
		return err
	}
	return writeJSONStatus(w, http.StatusCreated, info)
}

func (s *Server) showOracle(w http.ResponseWriter, r *http.Request) error {
	addr, err := pathAddress(r, "address")
	if err != nil {
		return err
	}
	info, err := s.registry.Info(addr)
	if err != nil {
		return err
	}
	o, err := s.registry.Get(addr)
	if err != nil {
		return err
	}
	ctx := r.Context()
	return WriteJSON(w, OracleView{
		Info:           info,
		Owner:          o.Owner(ctx),
		Paused:         o.Paused(ctx),
		Consensus:      o.Consensus(ctx),
		TotalDeposited: o.TotalDepositedTokens(ctx),
		Balance:        o.Balance(ctx),
		HistoryLength:  o.GetPriceHistoryLength(ctx),
	})
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) error {
	o, err := s.oracle(r)
	if err != nil {
		return err
	}
	ctx := r.Context()
	length := o.GetPriceHistoryLength(ctx)
	start, err := queryUint(r, "start", 0)
	if err != nil {
		return err
	}
	end, err := queryUint(r, "end", length)
	if err != nil {
		return err
	}
	h, err := o.GetPriceHistoryRange(ctx, start, end)
	if err != nil {
		return err
	}
	return WriteJSON(w, h)
}

func (s *Server) oracleEvents(w http.ResponseWriter, r *http.Request) error {
	o, err := s.oracle(r)
	if err != nil {
		return err
	}
	if s.events == nil {
		return errorsmod.Wrap(ErrNotFound, "event store not configured")
	}
	from, err := queryUint(r, "from", 1)
	if err != nil {
		return err
	}
	to, err := queryUint(r, "to", math.MaxInt64)
	if err != nil {
		return err
	}
	events, err := s.events.GetBySequenceRange(r.Context(), o.Address(), from, to)
	if err != nil {
		return err
	}
	return WriteJSON(w, events)
}

func (s *Server) submission(w http.ResponseWriter, r *http.Request) error {
	o, err := s.oracle(r)
	if err != nil {
		return err
	}
	index, err := strconv.ParseUint(mux.Vars(r)["index"], 10, 64)
	if err != nil {
		return BadRequest(fmt.Errorf("index: %v", err))
	}
	rec, err := o.Submission(r.Context(), index)
	if err != nil {
		return HTTPError(err, http.StatusNotFound)
	}
	return WriteJSON(w, rec)
}

func (s *Server) participant(w http.ResponseWriter, r *http.Request) error {
	o, err := s.oracle(r)
	if err != nil {
		return err
	}
	addr, err := pathAddress(r, "participant")
	if err != nil {
		return err
	}
	ctx := r.Context()
	return WriteJSON(w, ParticipantView{
		Participant: o.Participant(ctx, addr),
		Weight:      o.Weight(ctx, addr),
		UnlockTime:  o.GetTokenUnlockTime(ctx, addr),
		Submitter:   o.GetSubmitterInfo(ctx, addr),
		Blacklisted: o.IsBlacklisted(ctx, addr),
	})
}

func (s *Server) votes(w http.ResponseWriter, r *http.Request) error {
	o, err := s.oracle(r)
	if err != nil {
		return err
	}
	target, err := pathAddress(r, "target")
	if err != nil {
		return err
	}
	ctx := r.Context()
	view := VotesView{
		Target:         target,
		Blacklisted:    o.IsBlacklisted(ctx, target),
		BlacklistVotes: o.BlacklistVotes(ctx, target),
		WhitelistVotes: o.WhitelistVotes(ctx, target),
	}
	if v := r.URL.Query().Get("voter"); v != "" {
		voter, err := domain.ParseAddress(v)
		if err != nil {
			return BadRequest(err)
		}
		view.Voter = &VoterView{
			Voter:            voter,
			BlacklistWeight:  o.VoteWeight(ctx, domain.BallotBlacklist, target, voter),
			WhitelistWeight:  o.VoteWeight(ctx, domain.BallotWhitelist, target, voter),
			BlacklistTargets: o.UserVotes(ctx, domain.BallotBlacklist, voter),
			WhitelistTargets: o.UserVotes(ctx, domain.BallotWhitelist, voter),
		}
	}
	return WriteJSON(w, view)
}

// operate dispatches a signed mutating operation to the oracle engine.
func (s *Server) operate(w http.ResponseWriter, r *http.Request) error {
	o, err := s.oracle(r)
	if err != nil {
		return err
	}
	ctx := detach(r)
	caller := Signer(r.Context())

	switch op := mux.Vars(r)["op"]; op {
	case OpSubmit:
		var req SubmitRequest
		if err := decode(r, &req); err != nil {
			return err
		}
		rec, err := o.SubmitValue(ctx, caller, req.Value)
		if err != nil {
			return err
		}
		return WriteJSON(w, rec)

	case OpRead, OpReadLatest:
		read := o.ReadValue
		if op == OpReadLatest {
			read = o.ReadLatestValue
		}
		v, err := read(ctx, caller)
		if err != nil {
			return err
		}
		return WriteJSON(w, ReadResponse{Value: v})

	case OpDeposit, OpWithdraw, OpFund:
		var req AmountRequest
		if err := decode(r, &req); err != nil {
			return err
		}
		switch op {
		case OpDeposit:
			err = o.DepositTokens(ctx, caller, req.Amount)
		case OpWithdraw:
			err = o.WithdrawTokens(ctx, caller, req.Amount)
		default:
			err = o.Fund(ctx, caller, req.Amount)
		}
		if err != nil {
			return err
		}

	case OpVoteBlacklist, OpVoteWhitelist:
		var req VoteRequest
		if err := decode(r, &req); err != nil {
			return err
		}
		kind := domain.BallotBlacklist
		if op == OpVoteWhitelist {
			kind = domain.BallotWhitelist
		}
		if err := o.Vote(ctx, kind, caller, req.Target); err != nil {
			return err
		}

	case OpTransferOwnership:
		var req TransferOwnershipRequest
		if err := decode(r, &req); err != nil {
			return err
		}
		if err := o.TransferOwnership(ctx, caller, req.NewOwner); err != nil {
			return err
		}

	case OpRenounceOwnership:
		if err := o.RenounceOwnership(ctx, caller); err != nil {
			return err
		}

	case OpPause:
		if err := o.Pause(ctx, caller); err != nil {
			return err
		}

	case OpUnpause:
		if err := o.Unpause(ctx, caller); err != nil {
			return err
		}

	default:
		return errorsmod.Wrapf(ErrUnknownOp, "%q", op)
	}
	return WriteJSON(w, OKResponse{OK: true})
}

func (s *Server) oracle(r *http.Request) (*oracle.Oracle, error) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		return nil, err
	}
	return s.registry.Get(addr)
}

// ledger resolves a token by address or symbol.
func (s *Server) ledger(ref string) (*token.Ledger, error) {
	if addr, err := domain.ParseAddress(ref); err == nil {
		return s.registry.Bank().Ledger(addr)
	}
	for _, l := range s.registry.Bank().Ledgers() {
		if l.Symbol() == ref {
			return l, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", token.ErrUnknownToken, ref)
}

// detach keeps request values but drops cancellation, so a committed
// operation is persisted even if the client goes away.
func detach(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func decode(r *http.Request, v any) error {
	if err := ParseJSON(r.Body, v); err != nil {
		return BadRequest(fmt.Errorf("decode body: %v", err))
	}
	return nil
}

func pathAddress(r *http.Request, name string) (domain.Address, error) {
	addr, err := domain.ParseAddress(mux.Vars(r)[name])
	if err != nil {
		return "", BadRequest(err)
	}
	return addr, nil
}

func queryUint(r *http.Request, name string, def uint64) (uint64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, BadRequest(fmt.Errorf("%s: %v", name, err))
	}
	return v, nil
}
