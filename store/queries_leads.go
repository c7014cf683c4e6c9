package store

import storage "github.com/osr-alliance/leadtrack/storage"

func leadsGetByID() *storage.Query {
	return &storage.Query{
		Name:     LeadsGetByID,
		CacheKey: "id=%v",

		Query: "select * from leads where id=:id",

		InsertAction: storage.CacheSet,
		SelectAction: storage.CacheSet,
	}
}

func leadsGetAll() *storage.Query {
	return &storage.Query{
		Name:                    LeadsGetAll,
		CacheKey:                "all",
		CachePrimaryQueryStored: LeadsGetByID,

		Query: "select * from leads",

		InsertAction: storage.CacheRPush, // append the new id to the cached list, if there is one
		SelectAction: storage.CacheRPush,
	}
}

const leadsInsert = `INSERT INTO leads (id, name, phone, source, notes, follow_up_date)
VALUES
(:id, :name, :phone, :source, :notes, :follow_up_date) RETURNING *` // note: make sure it's RETURNING *
