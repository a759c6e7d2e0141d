package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	ottimap "github.com/hkdb/aerion/internal/imap"
	"github.com/hkdb/aerion/internal/mime"
	"github.com/hkdb/aerion/internal/otterr"
	"github.com/hkdb/aerion/internal/store"
)

// Batch sizes per §4.5.3-4.5.5: full-body fetches are capped tighter than
// metadata-only/flags-only fetches since the body literal dominates
// round-trip cost.
const (
	fetchNewBatchSize = 50
	classifyBatchSize = 250
	flagsBatchSize    = 250
)

// stableIDProviders names providers whose FETCH responses carry a stable
// provider message id (X-GM-MSGID), making the post-batch fallback-id
// dedupe worth running. Every provider this engine currently talks to does.
var stableIDProviders = map[string]bool{
	"gmail_imap": true,
}

// syncFolder runs the per-folder state machine (S0-S2) for one account's
// folder: select, compare baselines, choose a scan mode, fetch/classify,
// and persist the updated baseline as the pass's last write.
func (e *Engine) syncFolder(ctx context.Context, account store.Account, folder string, force bool, accessToken string, safeMode bool) error {
	log := e.log.With().Str("account", account.ID).Str("folder", folder).Logger()

	session, err := e.pool.GetOrCreate(ctx, account.ID, folder, func(ctx context.Context) (ottimap.FolderSession, error) {
		return e.dial(ctx, account, accessToken)
	})
	if err != nil {
		return otterr.Wrap(otterr.KindNetwork, account.ID, folder, fmt.Errorf("acquire session: %w", err))
	}
	healthy := false
	defer func() {
		if healthy {
			e.pool.Return(account.ID, folder, session)
		} else {
			e.pool.Discard(session)
		}
	}()

	// S0 — Open. CONDSTORE first, falling back to a plain SELECT (in which
	// case HighestModSeq is reported as absent/zero).
	mailbox, err := session.SelectCondstore(ctx, folder)
	if err != nil {
		log.Warn().Err(err).Msg("CONDSTORE select failed, falling back to plain select")
		mailbox, err = session.Select(ctx, folder)
		if err != nil {
			return otterr.Wrap(otterr.KindNetwork, account.ID, folder, fmt.Errorf("select %s: %w", folder, err))
		}
	}

	stored, hadBaseline, err := e.store.GetFolderState(account.ID, folder)
	if err != nil {
		return otterr.Wrap(otterr.KindDatabase, account.ID, folder, fmt.Errorf("load folder state: %w", err))
	}
	if !hadBaseline {
		stored = &store.FolderState{AccountID: account.ID, Name: folder}
	}

	// UIDVALIDITY check. Current policy (§9 open question 1): log and
	// proceed, letting the baseline update below rewrite the stored value.
	// Stored UIDs for this folder are NOT purged; a stricter implementation
	// could choose to delete-and-rebuild here instead.
	if stored.UIDValidity != nil && *stored.UIDValidity != mailbox.UIDValidity {
		log.Warn().
			Uint32("storedUIDValidity", *stored.UIDValidity).
			Uint32("serverUIDValidity", mailbox.UIDValidity).
			Msg("UIDVALIDITY changed; stored UIDs for this folder are no longer trustworthy")
	}

	// Fast-path exit: identical nonzero HIGHESTMODSEQ on both sides means
	// nothing changed since the last pass. No SEARCH/FETCH is issued and
	// the baseline is left untouched (P3).
	if !force && stored.HighestModSeq != nil && *stored.HighestModSeq != 0 &&
		mailbox.HighestModSeq != 0 && *stored.HighestModSeq == mailbox.HighestModSeq {
		log.Debug().Uint64("highestModSeq", mailbox.HighestModSeq).Msg("fast-path exit, no server-side change")
		healthy = true
		return nil
	}

	cutoff, err := time.Parse("2006-01-02", account.CutoffSince)
	if err != nil {
		return otterr.Wrap(otterr.KindConfig, account.ID, folder, fmt.Errorf("invalid cutoff_since %q: %w", account.CutoffSince, err))
	}

	// Mode selection: incremental only when both sides carry a usable
	// baseline HIGHESTMODSEQ; otherwise a full baseline scan is required.
	incremental := stored.HighestModSeq != nil && *stored.HighestModSeq != 0 && mailbox.HighestModSeq != 0

	var update store.FolderStateUpdate
	if incremental {
		update, err = e.syncIncremental(ctx, session, account, folder, cutoff, *stored.HighestModSeq, mailbox)
	} else {
		update, err = e.syncBaseline(ctx, session, account, folder, cutoff, mailbox)
	}
	if err != nil {
		return err
	}

	if _, err := e.store.UpsertFolderState(account.ID, folder, update); err != nil {
		return otterr.Wrap(otterr.KindDatabase, account.ID, folder, fmt.Errorf("update folder baseline: %w", err))
	}
	healthy = true
	return nil
}

// baselineUpdate builds the FolderStateUpdate every scan mode writes as its
// final step: the fresh server view plus the caller's chosen highest UID.
func (e *Engine) baselineUpdate(mailbox ottimap.Mailbox, highestUID uint32) store.FolderStateUpdate {
	now := e.now()
	uidValidity := mailbox.UIDValidity
	modSeq := mailbox.HighestModSeq
	exists := mailbox.Exists
	return store.FolderStateUpdate{
		UIDValidity:   &uidValidity,
		HighestUID:    &highestUID,
		HighestModSeq: &modSeq,
		ExistsCount:   &exists,
		LastSyncTS:    &now,
	}
}

// syncBaseline implements S1: a full UID SEARCH SINCE <cutoff>, diffed
// against the local UID map to find genuinely new messages.
func (e *Engine) syncBaseline(ctx context.Context, session ottimap.FolderSession, account store.Account, folder string, cutoff time.Time, mailbox ottimap.Mailbox) (store.FolderStateUpdate, error) {
	remoteUIDs, err := session.UIDSearch(ctx, ottimap.SinceCriteria(cutoff))
	if err != nil {
		return store.FolderStateUpdate{}, otterr.Wrap(otterr.KindNetwork, account.ID, folder, fmt.Errorf("baseline search: %w", err))
	}

	localUIDs, err := e.store.LoadUIDToMessageIDMap(account.ID, folder)
	if err != nil {
		return store.FolderStateUpdate{}, otterr.Wrap(otterr.KindDatabase, account.ID, folder, fmt.Errorf("load local uid map: %w", err))
	}

	var newUIDs []uint32
	for _, uid := range remoteUIDs {
		if _, ok := localUIDs[uid]; !ok {
			newUIDs = append(newUIDs, uid)
		}
	}

	if len(newUIDs) > 0 {
		if err := e.fetchNew(ctx, session, account, folder, newUIDs); err != nil {
			return store.FolderStateUpdate{}, err
		}
	}

	highestUID := highestUIDFor(mailbox, remoteUIDs)
	return e.baselineUpdate(mailbox, highestUID), nil
}

// syncIncremental implements S2: UID SEARCH SINCE <cutoff> MODSEQ n+1,
// classifying the result into new-or-moved messages (needing a metadata
// fetch to tell them apart) and already-known messages (needing only a
// flag refresh).
func (e *Engine) syncIncremental(ctx context.Context, session ottimap.FolderSession, account store.Account, folder string, cutoff time.Time, storedModSeq uint64, mailbox ottimap.Mailbox) (store.FolderStateUpdate, error) {
	changedUIDs, err := session.UIDSearch(ctx, ottimap.SinceModSeqCriteria(cutoff, storedModSeq+1))
	if err != nil {
		return store.FolderStateUpdate{}, otterr.Wrap(otterr.KindNetwork, account.ID, folder, fmt.Errorf("incremental search: %w", err))
	}

	highestUID := highestUIDFor(mailbox, changedUIDs)
	if len(changedUIDs) == 0 {
		return e.baselineUpdate(mailbox, highestUID), nil
	}

	existingByUID, err := e.store.LoadMessageIDsByUIDs(account.ID, folder, changedUIDs)
	if err != nil {
		return store.FolderStateUpdate{}, otterr.Wrap(otterr.KindDatabase, account.ID, folder, fmt.Errorf("load message ids by uid: %w", err))
	}

	var newUIDs, existingUIDs []uint32
	for _, uid := range changedUIDs {
		if _, ok := existingByUID[uid]; ok {
			existingUIDs = append(existingUIDs, uid)
		} else {
			newUIDs = append(newUIDs, uid)
		}
	}

	if len(newUIDs) > 0 {
		if err := e.fetchNewOrMove(ctx, session, account, folder, newUIDs); err != nil {
			return store.FolderStateUpdate{}, err
		}
	}
	if len(existingUIDs) > 0 {
		if err := e.fetchFlags(ctx, session, account, folder, existingUIDs); err != nil {
			return store.FolderStateUpdate{}, err
		}
	}

	return e.baselineUpdate(mailbox, highestUID), nil
}

// highestUIDFor computes the baseline highest_uid: UIDNEXT-1 when the
// server reported one, else the max of the UIDs just observed.
func highestUIDFor(mailbox ottimap.Mailbox, observed []uint32) uint32 {
	if mailbox.UIDNext > 0 {
		return mailbox.UIDNext - 1
	}
	var max uint32
	for _, uid := range observed {
		if uid > max {
			max = uid
		}
	}
	return max
}

// fetchNew implements §4.5.3: full-body UID FETCH in batches of at most
// fetchNewBatchSize, sanitized off the I/O path in a CPU-parallel stage,
// then committed as one transaction per batch.
func (e *Engine) fetchNew(ctx context.Context, session ottimap.FolderSession, account store.Account, folder string, uids []uint32) error {
	for _, batch := range batches(uids, fetchNewBatchSize) {
		fetches, err := session.UIDFetch(ctx, BuildUIDSequence(batch), ottimap.FetchOptions{Body: true})
		if err != nil {
			return otterr.Wrap(otterr.KindNetwork, account.ID, folder, fmt.Errorf("fetch new bodies: %w", err))
		}
		if len(fetches) == 0 {
			continue
		}

		sanitized := e.sanitizeParallel(fetches)

		now := e.now()
		messages := make([]store.MessageRecord, len(fetches))
		bodies := make([]store.BodyRecord, len(fetches))
		for i, f := range fetches {
			rec := buildMessageRecord(account.ID, folder, f, sanitized[i], now)
			messages[i] = rec
			bodies[i] = buildBodyRecord(rec.ID, f, sanitized[i], now)
		}

		if err := e.store.BatchUpsertMessagesWithBodies(messages, bodies); err != nil {
			return otterr.Wrap(otterr.KindDatabase, account.ID, folder, fmt.Errorf("upsert new messages: %w", err))
		}

		if stableIDProviders[account.Provider] {
			if n, derr := e.store.DedupeFallbackMessagesByRawHash(account.ID, dedupeHousekeepingLimit); derr != nil {
				e.log.Warn().Err(derr).Str("account", account.ID).Str("folder", folder).Msg("post-batch dedupe failed, continuing")
			} else if n > 0 {
				e.log.Debug().Int("count", n).Msg("deduped fallback-id messages after batch")
			}
		}
	}
	return nil
}

// sanitizeParallel runs MIME parsing and sanitization for a batch of
// fetched bodies across a worker pool sized to GOMAXPROCS, so CPU-bound
// parsing never starves the I/O path. Results preserve fetches' order.
func (e *Engine) sanitizeParallel(fetches []ottimap.Fetch) []mime.SanitizedBody {
	out := make([]mime.SanitizedBody, len(fetches))
	if len(fetches) == 0 {
		return out
	}

	workers := e.workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(fetches) {
		workers = len(fetches)
	}

	indices := make(chan int, len(fetches))
	for i := range fetches {
		indices <- i
	}
	close(indices)

	var wg gosync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				out[i] = mime.Sanitize(fetches[i].Body)
			}
		}()
	}
	wg.Wait()
	return out
}

// fetchNewOrMove implements §4.5.4: a metadata-only UID FETCH used to tell
// a genuinely new message apart from one already known elsewhere in the
// account under its stable id (a move/copy into this folder).
func (e *Engine) fetchNewOrMove(ctx context.Context, session ottimap.FolderSession, account store.Account, folder string, uids []uint32) error {
	type candidate struct {
		fetch ottimap.Fetch
		id    string
	}
	var candidates []candidate

	for _, batch := range batches(uids, classifyBatchSize) {
		fetches, err := session.UIDFetch(ctx, BuildUIDSequence(batch), ottimap.FetchOptions{})
		if err != nil {
			return otterr.Wrap(otterr.KindNetwork, account.ID, folder, fmt.Errorf("fetch classify metadata: %w", err))
		}
		for _, f := range fetches {
			candidates = append(candidates, candidate{fetch: f, id: messageID(account.ID, folder, f)})
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.id
	}
	existing, err := e.store.LoadExistingMessageIDs(account.ID, ids)
	if err != nil {
		return otterr.Wrap(otterr.KindDatabase, account.ID, folder, fmt.Errorf("load existing message ids: %w", err))
	}

	var locationUpdates []store.LocationUpdate
	var needBody []uint32
	for _, c := range candidates {
		if existing[c.id] {
			var threadID string
			if c.fetch.GMThrID != 0 {
				threadID = fmt.Sprintf("%d", c.fetch.GMThrID)
			}
			locationUpdates = append(locationUpdates, store.LocationUpdate{
				ID:           c.id,
				Folder:       folder,
				UID:          c.fetch.UID,
				Flags:        c.fetch.Flags,
				Labels:       c.fetch.GMLabels,
				ThreadID:     threadID,
				InternalDate: c.fetch.InternalDate.Unix(),
				SizeBytes:    c.fetch.Size,
			})
		} else {
			needBody = append(needBody, c.fetch.UID)
		}
	}

	if len(locationUpdates) > 0 {
		if err := e.store.BatchUpdateMessageLocationByID(account.ID, locationUpdates); err != nil {
			return otterr.Wrap(otterr.KindDatabase, account.ID, folder, fmt.Errorf("apply location updates: %w", err))
		}
	}
	if len(needBody) > 0 {
		return e.fetchNew(ctx, session, account, folder, needBody)
	}
	return nil
}

// fetchFlags implements §4.5.5: a minimal FLAGS(+labels) refresh for UIDs
// already cached in this folder.
func (e *Engine) fetchFlags(ctx context.Context, session ottimap.FolderSession, account store.Account, folder string, uids []uint32) error {
	for _, batch := range batches(uids, flagsBatchSize) {
		fetches, err := session.UIDFetch(ctx, BuildUIDSequence(batch), ottimap.FetchOptions{FlagsOnly: true})
		if err != nil {
			return otterr.Wrap(otterr.KindNetwork, account.ID, folder, fmt.Errorf("fetch flags: %w", err))
		}
		if len(fetches) == 0 {
			continue
		}

		updates := make([]store.FlagUpdate, len(fetches))
		for i, f := range fetches {
			updates[i] = store.FlagUpdate{UID: f.UID, Flags: f.Flags, Labels: f.GMLabels}
		}
		if err := e.store.BatchUpdateMessageFlagsByUID(account.ID, folder, updates); err != nil {
			return otterr.Wrap(otterr.KindDatabase, account.ID, folder, fmt.Errorf("apply flag updates: %w", err))
		}
	}
	return nil
}
