package docs

var topics = []Topic{
	{
		Name:    "quickstart",
		Title:   "Quickstart",
		Summary: "From zero to a running pipeline",
		Content: `
Quickstart
==========

1. Initialize the project:

     anvil init

   This writes .anvil/pipeline.yaml and one prompt template per phase,
   tailored to the project when possible.

2. Run a ticket:

     anvil run PROJ-123

   Phases run in declared order. Review gates route execution forward,
   back, or to a stop. Every invocation's cost is recorded as it happens.

3. Watch a run or inspect one afterwards:

     anvil status                # most recent run
     anvil status .anvil/runs/2026-08-29-1015-ab12cd34

4. If a run stops, fix the cause and resume it:

     anvil run --resume .anvil/runs/2026-08-29-1015-ab12cd34

   Completed invocations are never repeated; only the remaining work runs.
`,
	},
	{
		Name:    "config",
		Title:   "Configuration",
		Summary: "pipeline.yaml reference",
		Content: `
Configuration
=============

Everything lives in .anvil/pipeline.yaml. Nothing about phase order,
budgets, or routing is hardcoded in the binary.

Top-level keys:

  name                         project name
  ticket-pattern               regexp tickets must match (optional)
  agent-command                executor binary, default "claude"
  log-base-dir                 run directories, default .anvil/runs
  kill-switch-file             marker file path, default .anvil/kill
  max-pipeline-cost            total ceiling in USD, default 50
  max-retries                  per-item retry ceiling, default 3
  max-no-progress              consecutive no-change phases tolerated, default 3
  stagnation-changed-line-pct  changed-line threshold, default 10
  work-item-cap                max planned items, default 12
  doc-workers                  document fan-out width, default 1
  default-timeout              fallback phase timeout in seconds
  tier                         default tier, see 'anvil docs tiers'
  auto-fallback-tier           tier used when auto scope detection fails
  review-validator-command     optional deterministic verdict command
  human-gates                  phases requiring a .human-approved marker

  models:
    default: sonnet
    overrides: {implementation: opus, review-alt: opus}

  categories:                  per-category caps
    implementation: {max-turns: 40, max-budget-usd: 8, timeout: 600}

  phase-timeouts:              per-phase overrides, seconds
    implement: 900

  phases:                      declared execution order
    - name: implement
      category: implementation
      description: Implement plan work items
      prompt: .anvil/prompts/implement.md
      model: opus             # optional, overrides the category model

Each phase carries an explicit category; the category selects caps,
timeout, model, and whether the progress tracker watches the phase.
`,
	},
	{
		Name:    "tiers",
		Title:   "Tiers",
		Summary: "Thoroughness profiles and auto selection",
		Content: `
Tiers
=====

A tier selects which phases run, trading thoroughness against cost:

  guard      context-scan, security-audit, security-fix, ship
  nano       + implement, verify
  quick      + interrogate
  lite       + holdout generation and validation
  standard   everything except the security pass
  full       everything
  auto       resolved from the scan phase's scope estimate

Under auto, the scan phase ends its report with a line 'SCOPE: <1-5>'.
The estimate maps 1..5 onto nano, quick, lite, standard, full. Resolution
happens once, at the first routing decision after the scan, and is then
fixed for the run. A missing or malformed estimate falls back to
auto-fallback-tier (default standard) with a warning.

Override per run with:

  anvil run PROJ-123 --tier quick

Custom phase sets per tier go under tier-skips in pipeline.yaml.
`,
	},
	{
		Name:    "gates",
		Title:   "Gates and verdicts",
		Summary: "How reviews route execution",
		Content: `
Gates and verdicts
==================

A gate is a phase whose output is a verdict, not a side effect. The agent
ends its report with a line:

  VERDICT: PASS

Recognized verdicts: AUTO_PASS, PASS, PASS_WITH_NOTES, ITERATE, FAIL,
NEEDS_HUMAN, BLOCK. Anything else parses as UNKNOWN, and unknown blocks:
routing is fail-closed, so a gate whose outcome cannot be read never
silently passes.

Routing is a static (gate, verdict) table. Pass variants move forward;
ITERATE returns to the producing phase; FAIL on the post-implementation
gates routes into remediation. Each loop is bounded by max-retries, after
which the gate blocks and the run stops with a block report.

On the standard and full tiers, gates run twice: the second pass reviews
in reverse order, optionally on a different model (the review-alt model
override). If review-validator-command is set, the first pass's report is
also piped through it for a third, deterministic verdict. Disagreements
resolve by severity, strictest wins; agreement returns the shared verdict.

Phases listed under human-gates stop the run with exit code 2 until an
operator creates the approval marker printed by the run.
`,
	},
	{
		Name:    "budgets",
		Title:   "Budgets and breakers",
		Summary: "Cost ceiling, kill switch, stagnation, progress",
		Content: `
Budgets and breakers
====================

Four independent checks run at phase boundaries, never mid-invocation:

Kill switch. Touch the kill-switch-file and the run aborts before its
next invocation. Remove the file before starting a new run.

Cost ceiling. Before every invocation the recorded total is compared to
max-pipeline-cost; at or above it, the call is refused. The check runs
before the call because a call in flight cannot be bounded.

Stagnation. When verification rejects an attempt, its diagnostic log is
compared with the previous attempt's. Identical logs, or logs where fewer
than stagnation-changed-line-pct percent of lines changed, mean the agent
is circling; the next attempt's prompt gets an explicit instruction to
change approach.

Progress. Implementation and remediation phases are supposed to move the
repository head. After max-no-progress consecutive phases with an
unchanged head, the run aborts: the agent is reporting success without
doing anything durable.

Exit codes: 0 success, 1 failure/killed/over budget, 2 needs a human,
3 blocked or stalled, 4 holdout validation failed after completion.
`,
	},
	{
		Name:    "resume",
		Title:   "Runs and resume",
		Summary: "Run directories, artifacts, resuming",
		Content: `
Runs and resume
===============

Every run gets its own directory under log-base-dir:

  .anvil/runs/<timestamp>-<id>/
    costs.json          the ledger: every invocation's cost, in order
    checkpoint.json     current phase and status, overwritten as the run moves
    timing.json         per-phase wall-clock timing
    <phase>.json        result artifact per invocation
    <phase>.log         diagnostic log per invocation
    blocked-<item>.txt  block report, written on terminal aborts

Retries and review passes get numbered names: implement-step-2-attempt-3,
doc-review-pass2.

Resume re-enters a stopped run:

  anvil run --resume .anvil/runs/<dir>

Phases before the checkpointed phase are skipped outright. The
checkpointed phase and everything after re-enter normal evaluation, and
any invocation already in the ledger under its exact name is not repeated
— so a resumed run only pays for what it has not done yet. Note the
match is by name alone: editing prompts or config between runs does not
invalidate recorded results.

'anvil doctor' sends a failed run's trail to the agent for a diagnosis.
`,
	},
}
