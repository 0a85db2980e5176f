package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"

	sol "github.com/gagliardetto/solana-go"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const slotDocID = "slot"

// Mongo is a Store backed by MongoDB. Transactions need a replica set.
//
// Each Apply increments the shared slot counter first, so two concurrent
// Applies always write the same document and the driver retries the loser
// after the winner commits.
type Mongo struct {
	client   *mongo.Client
	accounts *mongo.Collection
	meta     *mongo.Collection
}

type accountDoc struct {
	Address  string `bson:"_id"`
	Owner    string `bson:"owner"`
	Lamports int64  `bson:"lamports"`
	Data     []byte `bson:"data,omitempty"`
	Slot     int64  `bson:"slot"`
}

type slotDoc struct {
	ID    string `bson:"_id"`
	Value int64  `bson:"value"`
}

// NewMongo sets up the collections and the slot counter.
func NewMongo(ctx context.Context, client *mongo.Client, dbName string) (*Mongo, error) {
	db := client.Database(dbName)
	m := &Mongo{
		client:   client,
		accounts: db.Collection("accounts"),
		meta:     db.Collection("ledger_meta"),
	}
	_, err := m.meta.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: slotDocID}},
		bson.D{{Key: "$setOnInsert", Value: bson.D{{Key: "value", Value: int64(0)}}}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return nil, fmt.Errorf("init slot counter: %w", err)
	}
	return m, nil
}

// toDoc rejects balances that do not fit the int64 bson field.
func toDoc(a Account, slot uint64) (accountDoc, error) {
	if a.Lamports > math.MaxInt64 {
		return accountDoc{}, fmt.Errorf("%w: %s holds %d", ErrBalanceOverflow, a.Address, a.Lamports)
	}
	return accountDoc{
		Address:  a.Address.String(),
		Owner:    a.Owner.String(),
		Lamports: int64(a.Lamports),
		Data:     a.Data,
		Slot:     int64(slot),
	}, nil
}

func fromDoc(d accountDoc) (*Account, error) {
	addr, err := sol.PublicKeyFromBase58(d.Address)
	if err != nil {
		return nil, fmt.Errorf("account %q: %w", d.Address, err)
	}
	owner, err := sol.PublicKeyFromBase58(d.Owner)
	if err != nil {
		return nil, fmt.Errorf("account %q owner: %w", d.Address, err)
	}
	return &Account{Address: addr, Owner: owner, Lamports: uint64(d.Lamports), Data: d.Data}, nil
}

func (m *Mongo) find(ctx context.Context, addr sol.PublicKey) (*Account, error) {
	var d accountDoc
	err := m.accounts.FindOne(ctx, bson.D{{Key: "_id", Value: addr.String()}}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromDoc(d)
}

type mongoTx struct {
	m      *Mongo
	slot   uint64
	staged map[sol.PublicKey]Account
}

func (tx *mongoTx) Slot() uint64 { return tx.slot }

func (tx *mongoTx) Account(ctx context.Context, addr sol.PublicKey) (*Account, error) {
	if a, ok := tx.staged[addr]; ok {
		c := a.clone()
		return &c, nil
	}
	return tx.m.find(ctx, addr)
}

func (tx *mongoTx) Put(acct Account) { tx.staged[acct.Address] = acct.clone() }

func (m *Mongo) Apply(ctx context.Context, fn func(ctx context.Context, tx Tx) error) (uint64, error) {
	sess, err := m.client.StartSession()
	if err != nil {
		return 0, err
	}
	defer sess.EndSession(ctx)

	res, err := sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		var counter slotDoc
		err := m.meta.FindOneAndUpdate(sc,
			bson.D{{Key: "_id", Value: slotDocID}},
			bson.D{{Key: "$inc", Value: bson.D{{Key: "value", Value: int64(1)}}}},
			options.FindOneAndUpdate().SetReturnDocument(options.After).SetUpsert(true),
		).Decode(&counter)
		if err != nil {
			return nil, fmt.Errorf("advance slot: %w", err)
		}
		tx := &mongoTx{m: m, slot: uint64(counter.Value), staged: make(map[sol.PublicKey]Account)}
		if err := fn(sc, tx); err != nil {
			return nil, err
		}
		for addr, a := range tx.staged {
			doc, err := toDoc(a, tx.slot)
			if err != nil {
				return nil, err
			}
			_, err = m.accounts.ReplaceOne(sc,
				bson.D{{Key: "_id", Value: addr.String()}},
				doc,
				options.Replace().SetUpsert(true),
			)
			if err != nil {
				return nil, fmt.Errorf("write %s: %w", addr, err)
			}
		}
		return tx.slot, nil
	})
	if err != nil {
		return 0, err
	}
	return res.(uint64), nil
}

func (m *Mongo) Account(ctx context.Context, addr sol.PublicKey) (*Account, error) {
	return m.find(ctx, addr)
}

func (m *Mongo) Balance(ctx context.Context, addr sol.PublicKey) (uint64, error) {
	a, err := m.find(ctx, addr)
	if errors.Is(err, ErrAccountNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return a.Lamports, nil
}

func (m *Mongo) Airdrop(ctx context.Context, addr sol.PublicKey, lamports uint64) (uint64, error) {
	return m.Apply(ctx, func(ctx context.Context, tx Tx) error {
		return credit(ctx, tx, addr, lamports)
	})
}

func (m *Mongo) Slot(ctx context.Context) (uint64, error) {
	var counter slotDoc
	err := m.meta.FindOne(ctx, bson.D{{Key: "_id", Value: slotDocID}}).Decode(&counter)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return uint64(counter.Value), nil
}

func (m *Mongo) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

// drop removes all ledger data. Used by tests.
func (m *Mongo) drop(ctx context.Context) error {
	if err := m.accounts.Drop(ctx); err != nil {
		return err
	}
	return m.meta.Drop(ctx)
}
