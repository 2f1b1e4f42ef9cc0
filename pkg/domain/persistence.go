package domain

import "context"

// Transaction exposes the merge operations a persistence implementation must
// support within an atomic scope. Every Upsert inserts the row or replaces
// the existing row with the same key.
type Transaction interface {
	UpsertDomain(Domain) error
	UpsertDomainContact(DomainContact) (DomainContact, error)
	UpsertUniprotSequence(UniprotSequence) error
	UpsertProvean(Provean) error
	UpsertUniprotDomain(UniprotDomain) (UniprotDomain, error)
	UpsertUniprotDomainPair(UniprotDomainPair) (UniprotDomainPair, error)
	UpsertUniprotDomainTemplate(UniprotDomainTemplate) error
	UpsertUniprotDomainModel(UniprotDomainModel) error
	UpsertUniprotDomainMutation(UniprotDomainMutation) error
	UpsertUniprotDomainPairTemplate(UniprotDomainPairTemplate) error
	UpsertUniprotDomainPairModel(UniprotDomainPairModel) error
	UpsertUniprotDomainPairMutation(UniprotDomainPairMutation) error
	FindUniprotSequence(uniprotID string) (UniprotSequence, bool, error)
	FindUniprotDomain(id int64) (UniprotDomain, bool, error)
}

// PersistentStore is the abstraction over durable backends used by the
// data-access layer.
type PersistentStore interface {
	CreateSchema(ctx context.Context, clear bool) error
	RunInTransaction(ctx context.Context, fn func(Transaction) error) error

	// FindDomains returns the domains whose pdbfam name matches any of the
	// given Pfam names.
	FindDomains(ctx context.Context, pfamNames []string, subdomains bool) ([]Domain, error)
	// FindDomainContacts returns contacts whose first domain matches
	// pfamNames1 and whose second domain matches pfamNames2, with both
	// domains attached.
	FindDomainContacts(ctx context.Context, pfamNames1, pfamNames2 []string, subdomains bool) ([]DomainContact, error)
	// ListUniprotDomains returns every domain of a protein, hydrated with its
	// sequence, Provean record, template, template domain and model.
	ListUniprotDomains(ctx context.Context, uniprotID string) ([]UniprotDomain, error)
	// ListUniprotDomainPairs returns the pairs in which either side belongs
	// to the protein, hydrated like ListUniprotDomains on both sides.
	ListUniprotDomainPairs(ctx context.Context, uniprotID string) ([]UniprotDomainPair, error)
	GetUniprotDomainMutation(ctx context.Context, uniprotDomainID int64, mutation string) (UniprotDomainMutation, bool, error)
	GetUniprotDomainPairMutation(ctx context.Context, uniprotID string, uniprotDomainPairID int64, mutation string) (UniprotDomainPairMutation, bool, error)
	GetUniprotSequence(ctx context.Context, uniprotID string) (UniprotSequence, bool, error)

	UpdateDomainErrors(ctx context.Context, cathID, errors string) error
	UpdateDomainContactErrors(ctx context.Context, domainContactID int64, errors string) error
	// SetDomainContactErrors records errors on the contact between two domains.
	SetDomainContactErrors(ctx context.Context, cathID1, cathID2, errors string) error
	// SyncSequences advances database-assigned id counters past rows
	// written with explicit ids.
	SyncSequences(ctx context.Context) error

	Close() error
}
