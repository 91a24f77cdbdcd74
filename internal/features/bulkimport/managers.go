package bulkimport

import (
	"context"
	"strings"

	"github.com/samSKIF/ThrivioHR-sub000/internal/features/directory"
)

// ManagerDiagnostics resolves manager references and flags structural
// problems in the reporting graph implied by a batch. Problems are
// advisory: they never change a row's planned action.
type ManagerDiagnostics struct {
	Repo directory.DirectoryRepository
}

const (
	white = iota // unvisited
	gray         // on the current traversal path
	black        // fully explored
)

// Annotate resolves each record's manager reference (stored directory
// first, then the batch itself) and detects self-management and cycles
// over the union of stored and in-batch manager edges. Cycles can only
// manifest across that union, so detection runs on the whole graph, not
// per row.
func (d *ManagerDiagnostics) Annotate(ctx context.Context, orgID string, plan *CommitPlanResult) error {
	records := plan.Records

	// first occurrence wins for duplicate emails, matching apply order
	batchIdx := make(map[string]int)
	for i, r := range records {
		if r.Email != "" {
			if _, ok := batchIdx[r.Email]; !ok {
				batchIdx[r.Email] = i
			}
		}
	}

	cache := make(map[string]*directory.UserRecord)
	cached := make(map[string]bool)
	fetch := func(email string) (*directory.UserRecord, error) {
		if cached[email] {
			return cache[email], nil
		}
		u, err := d.Repo.FindUserByEmailOrg(ctx, email, orgID)
		if err != nil {
			return nil, err
		}
		cached[email] = true
		cache[email] = u
		return u, nil
	}

	for i := range records {
		r := &records[i]
		if r.Incoming.ManagerEmail == nil || *r.Incoming.ManagerEmail == "" {
			continue
		}
		mgr := *r.Incoming.ManagerEmail // lower-cased by the normalizer

		if r.Email != "" && mgr == r.Email {
			plan.Overview.ManagerSelf++
			r.Reason = append(r.Reason, "Employee cannot be their own manager")
			continue
		}

		stored, err := fetch(mgr)
		if err != nil {
			return err
		}
		switch {
		case stored != nil:
			r.ManagerResolved = true
			id := stored.ID
			r.ManagerUserID = &id
		default:
			if _, ok := batchIdx[mgr]; ok {
				// manager is created by this same import; no id until apply
				r.ManagerResolved = true
			} else {
				plan.Overview.ManagerMissing++
				r.Reason = append(r.Reason, "Manager not found in directory or file")
			}
		}
	}

	// successor follows the union graph: a batch row shadows the stored
	// record with the same email, otherwise the stored manager edge is used
	succ := func(email string) (string, bool, error) {
		if idx, ok := batchIdx[email]; ok {
			m := records[idx].Incoming.ManagerEmail
			if m == nil || *m == "" || *m == email {
				return "", false, nil
			}
			return *m, true, nil
		}
		u, err := fetch(email)
		if err != nil {
			return "", false, err
		}
		if u != nil && u.ManagerEmail != "" {
			m := strings.ToLower(u.ManagerEmail)
			if m == email {
				return "", false, nil
			}
			return m, true, nil
		}
		return "", false, nil
	}

	color := make(map[string]int)
	onCycle := make(map[string]bool)
	var stack []string

	var visit func(string) error
	visit = func(node string) error {
		color[node] = gray
		stack = append(stack, node)

		next, ok, err := succ(node)
		if err != nil {
			return err
		}
		if ok {
			switch color[next] {
			case white:
				if err := visit(next); err != nil {
					return err
				}
			case gray:
				// back edge: everything from next to the top of the stack
				// forms the cycle
				plan.Overview.ManagerCycles++
				for j := len(stack) - 1; j >= 0; j-- {
					onCycle[stack[j]] = true
					if stack[j] == next {
						break
					}
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[node] = black
		return nil
	}

	for _, r := range records {
		if r.Email != "" && color[r.Email] == white {
			if err := visit(r.Email); err != nil {
				return err
			}
		}
	}

	for i := range records {
		if onCycle[records[i].Email] {
			records[i].Reason = append(records[i].Reason, "Part of a management cycle")
		}
	}

	return nil
}
