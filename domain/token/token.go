package token

import (
	"github.com/x-xyz/cloutledger/base/ctx"
	"github.com/x-xyz/cloutledger/domain"
)

var (
	ErrMintNotFound          = domain.NewError(domain.KindNotFound, "MintNotFound", "mint does not exist")
	ErrAccountNotFound       = domain.NewError(domain.KindNotFound, "AccountNotFound", "token account does not exist")
	ErrOwnerMismatch         = domain.NewError(domain.KindAuthorization, "OwnerMismatch", "authority does not own the source account")
	ErrMintAuthorityMismatch = domain.NewError(domain.KindAuthorization, "MintAuthorityMismatch", "authority is not the mint authority")
	ErrMintMismatch          = domain.NewError(domain.KindValidation, "MintMismatch", "accounts hold different mints")
	ErrInsufficientFunds     = domain.NewError(domain.KindState, "InsufficientFunds", "insufficient funds")
	ErrNativeAccount         = domain.NewError(domain.KindValidation, "NativeAccount", "account holds native value")
	ErrNotNativeAccount      = domain.NewError(domain.KindValidation, "NotNativeAccount", "account does not hold native value")
	ErrNotSystemOwned        = domain.NewError(domain.KindValidation, "NotSystemOwned", "source wallet is not system owned")
	ErrInvalidPayoutAccount  = domain.NewError(domain.KindValidation, "InvalidPayoutAccount", "payout account is invalid")
	ErrFaucetDisabled        = domain.NewError(domain.KindAuthorization, "FaucetDisabled", "native deposits are disabled")
)

// Mint is a token type with a single minting authority.
type Mint struct {
	Address   domain.Address `json:"address" bson:"_id"`
	Authority domain.Address `json:"authority" bson:"authority"`
	Supply    domain.Amount  `json:"supply" bson:"supply"`
	Decimals  uint8          `json:"decimals" bson:"decimals"`
}

// Account holds a balance of one mint. Wallets holding native value use
// domain.NativeMint and are owned by the system program; custody accounts are
// owned by the program that controls them.
type Account struct {
	Address domain.Address `json:"address" bson:"_id"`
	Owner   domain.Address `json:"owner" bson:"owner"`
	Mint    domain.Address `json:"mint" bson:"mint"`
	Balance domain.Amount  `json:"balance" bson:"balance"`
}

func (a *Account) IsNative() bool {
	return a.Mint == domain.NativeMint
}

type Repo interface {
	FindMint(c ctx.Ctx, address domain.Address) (*Mint, error)
	InsertMint(c ctx.Ctx, mint *Mint) error
	UpsertMint(c ctx.Ctx, mint *Mint) error

	FindAccount(c ctx.Ctx, address domain.Address) (*Account, error)
	InsertAccount(c ctx.Ctx, account *Account) error
	UpsertAccount(c ctx.Ctx, account *Account) error
}

// Usecase is the value-transfer surface of the hosting ledger.
type Usecase interface {
	CreateMint(c ctx.Ctx, address, authority domain.Address, decimals uint8) (*Mint, error)
	GetMint(c ctx.Ctx, address domain.Address) (*Mint, error)

	// OpenAccount creates an empty account of mint owned by owner.
	OpenAccount(c ctx.Ctx, address, owner, mint domain.Address) (*Account, error)
	GetAccount(c ctx.Ctx, address domain.Address) (*Account, error)

	// Deposit credits a native wallet, creating it if needed.
	Deposit(c ctx.Ctx, wallet domain.Address, amount domain.Amount) (*Account, error)

	// Transfer moves tokens out of an account owned by authority.
	Transfer(c ctx.Ctx, authority, from, to domain.Address, amount domain.Amount) error

	// MintTo issues new tokens of mint into to.
	MintTo(c ctx.Ctx, authority, mint, to domain.Address, amount domain.Amount) error

	// TransferNative moves native value out of the system-owned wallet
	// signer. The destination account is created if it does not exist yet.
	TransferNative(c ctx.Ctx, signer, to domain.Address, amount domain.Amount) error

	// Disburse moves native value out of an account custodied by custodian
	// into a system-owned wallet. A zero amount is a no-op.
	Disburse(c ctx.Ctx, custodian, from, to domain.Address, amount domain.Amount) error
}
