package catalog

// mutationsPerRow is the number of index/table mutations one promoted
// stage row causes: one artifact row write plus its two-column index,
// one generation row write plus its two-column index, and the stage row
// itself plus its indexes. Any schema change to the promoted tables must
// recompute this constant.
const mutationsPerRow = 14

// transactionMutationCap is the database's per-transaction mutation
// ceiling assumed by the design.
const transactionMutationCap = 80000

// PromotionBatchSize is the largest number of stage rows one promotion
// transaction may process, derived from mutationsPerRow * N <=
// transactionMutationCap. This is 5714 (80000/14, floored), not the
// reference constant of 6153 — that value assumes a different
// mutations-per-row count than this schema's. The formula is the
// load-bearing contract; recompute on any schema change rather than
// hardcoding either number.
const PromotionBatchSize = transactionMutationCap / mutationsPerRow

// FragmentInsertBatchSize caps one fragment insert statement.
const FragmentInsertBatchSize = 1000

// FragmentKeyInsertBatchSize caps one fragment-key insert statement.
const FragmentKeyInsertBatchSize = 2000

// DeferredPersistBatchSize caps one deferred_disaggregation persistence
// chunk, written before the matching batch of messages is published.
const DeferredPersistBatchSize = 5000
