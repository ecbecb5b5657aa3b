package postgres

import (
	"fmt"

	"gorm.io/gorm"

	"immoflow/store"
)

// InstallReferences adds a foreign key constraint for each reference. The
// constraints use NO ACTION so a parent delete fails while children remain.
// Constraints that already exist are left alone.
func InstallReferences(db *gorm.DB, refs ...store.Reference) error {
	for _, ref := range refs {
		stmt, err := foreignKeySQL(ref)
		if err != nil {
			return err
		}
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("add foreign key %s.%s: %w", ref.Child, ref.Column, err)
		}
	}
	return nil
}

func constraintName(ref store.Reference) string {
	return "fk_" + ref.Child + "_" + ref.Column
}

func foreignKeySQL(ref store.Reference) (string, error) {
	child, err := quote(ref.Child)
	if err != nil {
		return "", err
	}
	col, err := quote(ref.Column)
	if err != nil {
		return "", err
	}
	parent, err := quote(ref.Parent)
	if err != nil {
		return "", err
	}
	name := constraintName(ref)
	return fmt.Sprintf(`DO $$ BEGIN
	IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '%s') THEN
		ALTER TABLE %s ADD CONSTRAINT "%s" FOREIGN KEY (%s) REFERENCES %s ("id");
	END IF;
END $$;`, name, child, name, col, parent), nil
}
