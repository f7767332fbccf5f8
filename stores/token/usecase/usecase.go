package usecase

import (
	"golang.org/x/xerrors"

	"github.com/x-xyz/cloutledger/base/ctx"
	"github.com/x-xyz/cloutledger/base/log"
	"github.com/x-xyz/cloutledger/base/safemath"
	"github.com/x-xyz/cloutledger/domain"
	"github.com/x-xyz/cloutledger/domain/authority"
	"github.com/x-xyz/cloutledger/domain/token"
	"github.com/x-xyz/cloutledger/service/executor"
)

type impl struct {
	repo token.Repo
	ex   executor.Executor
}

func New(repo token.Repo, ex executor.Executor) token.Usecase {
	return &impl{
		repo: repo,
		ex:   ex,
	}
}

func (im *impl) CreateMint(c ctx.Ctx, address, mintAuthority domain.Address, decimals uint8) (*token.Mint, error) {
	if address.IsEmpty() || mintAuthority.IsEmpty() {
		return nil, domain.ErrInvalidAddress
	}
	mint := &token.Mint{
		Address:   address.ToLower(),
		Authority: mintAuthority.ToLower(),
		Decimals:  decimals,
	}
	err := im.ex.Run(c, "token.createMint", func(c ctx.Ctx) error {
		return im.repo.InsertMint(c, mint)
	})
	if err != nil {
		return nil, err
	}
	return mint, nil
}

func (im *impl) GetMint(c ctx.Ctx, address domain.Address) (*token.Mint, error) {
	mint, err := im.repo.FindMint(c, address)
	if err == domain.ErrNotFound {
		return nil, token.ErrMintNotFound
	}
	return mint, err
}

func (im *impl) OpenAccount(c ctx.Ctx, address, owner, mint domain.Address) (*token.Account, error) {
	if address.IsEmpty() || owner.IsEmpty() || mint.IsEmpty() {
		return nil, domain.ErrInvalidAddress
	}
	acc := &token.Account{
		Address: address.ToLower(),
		Owner:   owner.ToLower(),
		Mint:    mint.ToLower(),
	}
	err := im.ex.Run(c, "token.openAccount", func(c ctx.Ctx) error {
		if !acc.IsNative() {
			if _, err := im.GetMint(c, acc.Mint); err != nil {
				return err
			}
		}
		return im.repo.InsertAccount(c, acc)
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}

func (im *impl) GetAccount(c ctx.Ctx, address domain.Address) (*token.Account, error) {
	acc, err := im.repo.FindAccount(c, address)
	if err == domain.ErrNotFound {
		return nil, token.ErrAccountNotFound
	}
	return acc, err
}

// wallet loads a native wallet, materializing a system-owned one if it does
// not exist yet.
func (im *impl) wallet(c ctx.Ctx, address domain.Address) (*token.Account, error) {
	acc, err := im.repo.FindAccount(c, address)
	if err == domain.ErrNotFound {
		return &token.Account{
			Address: address.ToLower(),
			Owner:   authority.SystemProgram,
			Mint:    domain.NativeMint,
		}, nil
	} else if err != nil {
		return nil, err
	}
	if !acc.IsNative() {
		return nil, token.ErrNotNativeAccount
	}
	return acc, nil
}

func (im *impl) Deposit(c ctx.Ctx, wallet domain.Address, amount domain.Amount) (*token.Account, error) {
	if wallet.IsEmpty() {
		return nil, domain.ErrInvalidAddress
	}
	var res *token.Account
	err := im.ex.Run(c, "token.deposit", func(c ctx.Ctx) error {
		acc, err := im.wallet(c, wallet)
		if err != nil {
			return err
		}
		// custody accounts only move through their program
		if !acc.Owner.Equals(authority.SystemProgram) {
			return token.ErrNotSystemOwned
		}
		if acc.Balance, err = safemath.Add(acc.Balance, amount); err != nil {
			return err
		}
		res = acc
		return im.repo.UpsertAccount(c, acc)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// move debits from and credits to, persisting both.
func (im *impl) move(c ctx.Ctx, from, to *token.Account, amount domain.Amount) error {
	if from.Balance < amount {
		return token.ErrInsufficientFunds
	}
	if from.Address == to.Address {
		return nil
	}
	var err error
	if from.Balance, err = safemath.Sub(from.Balance, amount); err != nil {
		return err
	}
	if to.Balance, err = safemath.Add(to.Balance, amount); err != nil {
		return err
	}
	if err := im.repo.UpsertAccount(c, from); err != nil {
		return err
	}
	return im.repo.UpsertAccount(c, to)
}

func (im *impl) Transfer(c ctx.Ctx, owner, from, to domain.Address, amount domain.Amount) error {
	return im.ex.Run(c, "token.transfer", func(c ctx.Ctx) error {
		src, err := im.GetAccount(c, from)
		if err != nil {
			return err
		}
		dst, err := im.GetAccount(c, to)
		if err != nil {
			return err
		}
		if src.IsNative() || dst.IsNative() {
			return token.ErrNativeAccount
		}
		if !src.Owner.Equals(owner) {
			return token.ErrOwnerMismatch
		}
		if !src.Mint.Equals(dst.Mint) {
			return token.ErrMintMismatch
		}
		if amount == 0 {
			return nil
		}
		return im.move(c, src, dst, amount)
	})
}

func (im *impl) MintTo(c ctx.Ctx, mintAuthority, mintAddress, to domain.Address, amount domain.Amount) error {
	return im.ex.Run(c, "token.mintTo", func(c ctx.Ctx) error {
		mint, err := im.GetMint(c, mintAddress)
		if err != nil {
			return err
		}
		if !mint.Authority.Equals(mintAuthority) {
			return token.ErrMintAuthorityMismatch
		}
		dst, err := im.GetAccount(c, to)
		if err != nil {
			return err
		}
		if !dst.Mint.Equals(mint.Address) {
			return token.ErrMintMismatch
		}
		if mint.Supply, err = safemath.Add(mint.Supply, amount); err != nil {
			return err
		}
		if dst.Balance, err = safemath.Add(dst.Balance, amount); err != nil {
			return err
		}
		if err := im.repo.UpsertMint(c, mint); err != nil {
			return err
		}
		return im.repo.UpsertAccount(c, dst)
	})
}

func (im *impl) TransferNative(c ctx.Ctx, signer, to domain.Address, amount domain.Amount) error {
	return im.ex.Run(c, "token.transferNative", func(c ctx.Ctx) error {
		src, err := im.GetAccount(c, signer)
		if err != nil {
			return err
		}
		if !src.IsNative() {
			return token.ErrNotNativeAccount
		}
		if !src.Owner.Equals(authority.SystemProgram) {
			return token.ErrNotSystemOwned
		}
		dst, err := im.repo.FindAccount(c, to)
		if err == domain.ErrNotFound {
			dst, err = im.wallet(c, to)
		}
		if err != nil {
			return err
		}
		if !dst.IsNative() {
			return token.ErrNotNativeAccount
		}
		return im.move(c, src, dst, amount)
	})
}

func (im *impl) Disburse(c ctx.Ctx, custodian, from, to domain.Address, amount domain.Amount) error {
	if to.IsEmpty() || to.Equals(domain.EmptyAddress) {
		return domain.ErrInvalidAddress
	}
	if amount == 0 {
		return nil
	}
	return im.ex.Run(c, "token.disburse", func(c ctx.Ctx) error {
		src, err := im.GetAccount(c, from)
		if err != nil {
			return err
		}
		if !src.IsNative() || !src.Owner.Equals(custodian) {
			return xerrors.Errorf("source %s: %w", from, token.ErrInvalidPayoutAccount)
		}
		dst, err := im.wallet(c, to)
		if err == token.ErrNotNativeAccount || (err == nil && !dst.Owner.Equals(authority.SystemProgram)) {
			return xerrors.Errorf("destination %s: %w", to, token.ErrInvalidPayoutAccount)
		} else if err != nil {
			return err
		}
		if err := im.move(c, src, dst, amount); err != nil {
			c.WithFields(log.Fields{"from": from, "to": to, "amount": amount}).Warn("disburse failed")
			return err
		}
		return nil
	})
}
